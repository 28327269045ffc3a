package gcode

import "sync/atomic"

// ConnState is the lifecycle state of a Link.
type ConnState uint32

const (
	DisconnectedState ConnState = iota
	ConnectingState
	ConnectedState
	// TimedOutState marks a connected link whose most recent command was not
	// acknowledged in time. It still accepts commands.
	TimedOutState
)

func (s ConnState) String() string {
	switch s {
	case DisconnectedState:
		return "Disconnected"
	case ConnectingState:
		return "Connecting"
	case ConnectedState:
		return "Connected"
	case TimedOutState:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// AtomicConnState holds a ConnState with compare-and-swap transitions.
type AtomicConnState struct {
	state atomic.Uint32
}

func (st *AtomicConnState) String() string {
	return st.Get().String()
}

// Get returns the current state.
func (st *AtomicConnState) Get() ConnState {
	return ConnState(st.state.Load())
}

// Set sets the state unconditionally.
func (st *AtomicConnState) Set(state ConnState) {
	st.state.Store(uint32(state))
}

func (st *AtomicConnState) IsDisconnected() bool {
	return st.Get() == DisconnectedState
}

func (st *AtomicConnState) IsConnecting() bool {
	return st.Get() == ConnectingState
}

// IsUsable reports whether commands may be written, i.e. the link is
// Connected or TimedOut.
func (st *AtomicConnState) IsUsable() bool {
	s := st.Get()
	return s == ConnectedState || s == TimedOutState
}

func (st *AtomicConnState) ToConnecting() bool {
	return st.state.CompareAndSwap(uint32(DisconnectedState), uint32(ConnectingState))
}

func (st *AtomicConnState) ToConnected() bool {
	if st.Get() == ConnectedState {
		return true
	}

	if st.state.CompareAndSwap(uint32(ConnectingState), uint32(ConnectedState)) {
		return true
	}

	return st.state.CompareAndSwap(uint32(TimedOutState), uint32(ConnectedState))
}

func (st *AtomicConnState) ToTimedOut() bool {
	if st.Get() == TimedOutState {
		return true
	}

	return st.state.CompareAndSwap(uint32(ConnectedState), uint32(TimedOutState))
}

// ToDisconnected moves any state to Disconnected and reports whether the
// state actually changed.
func (st *AtomicConnState) ToDisconnected() bool {
	return st.state.Swap(uint32(DisconnectedState)) != uint32(DisconnectedState)
}
