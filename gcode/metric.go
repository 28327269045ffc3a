package gcode

import (
	"sync/atomic"
)

// LinkMetrics contains atomic metrics for a link.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type LinkMetrics struct {
	// CmdSendCount indicates the number of commands transmitted.
	CmdSendCount atomic.Uint64
	// AckCount indicates the number of acknowledged commands.
	AckCount atomic.Uint64
	// TimeoutCount indicates the number of commands that timed out.
	TimeoutCount atomic.Uint64
	// CmdErrCount indicates the number of commands rejected or failed with an error.
	CmdErrCount atomic.Uint64
	// LineRecvCount indicates the number of lines received from the device.
	LineRecvCount atomic.Uint64
	// InflightCount is 1 while a command awaits its acknowledgment.
	InflightCount atomic.Int64
}

func (m *LinkMetrics) incCmdSendCount() {
	m.CmdSendCount.Add(1)
}

func (m *LinkMetrics) incAckCount() {
	m.AckCount.Add(1)
}

func (m *LinkMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *LinkMetrics) incCmdErrCount() {
	m.CmdErrCount.Add(1)
}

func (m *LinkMetrics) incLineRecvCount() {
	m.LineRecvCount.Add(1)
}

func (m *LinkMetrics) incInflightCount() {
	m.InflightCount.Add(1)
}

func (m *LinkMetrics) decInflightCount() {
	m.InflightCount.Add(-1)
}
