package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtomicConnState_String(t *testing.T) {
	tests := []struct {
		state ConnState
		want  string
	}{
		{DisconnectedState, "Disconnected"},
		{ConnectingState, "Connecting"},
		{ConnectedState, "Connected"},
		{TimedOutState, "TimedOut"},
		{ConnState(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			st := &AtomicConnState{}
			st.Set(tt.state)
			assert.Equal(t, tt.want, st.String())
		})
	}
}

func TestAtomicConnState_Transitions(t *testing.T) {
	st := &AtomicConnState{}
	assert.True(t, st.IsDisconnected())
	assert.False(t, st.IsUsable())

	// Connected is only reachable through Connecting.
	assert.False(t, st.ToConnected())
	assert.False(t, st.ToTimedOut())

	assert.True(t, st.ToConnecting())
	assert.True(t, st.IsConnecting())
	assert.False(t, st.ToConnecting())
	assert.False(t, st.IsUsable())

	assert.True(t, st.ToConnected())
	assert.True(t, st.ToConnected(), "idempotent")
	assert.True(t, st.IsUsable())

	assert.True(t, st.ToTimedOut())
	assert.True(t, st.ToTimedOut(), "idempotent")
	assert.Equal(t, TimedOutState, st.Get())
	assert.True(t, st.IsUsable())

	assert.True(t, st.ToConnected())
	assert.Equal(t, ConnectedState, st.Get())

	assert.True(t, st.ToDisconnected())
	assert.False(t, st.ToDisconnected())
	assert.True(t, st.IsDisconnected())
}

func TestAtomicConnState_ConnectingCannotTimeOut(t *testing.T) {
	st := &AtomicConnState{}
	st.Set(ConnectingState)

	assert.False(t, st.ToTimedOut())
	assert.Equal(t, ConnectingState, st.Get())
}
