package gcode

// AckResult is the outcome of a single command exchange.
//
// A timeout is an expected outcome on slow or busy firmware, so it is reported
// as a result rather than an error; the caller decides whether it is fatal.
type AckResult uint8

const (
	// Acknowledged means the device answered with the acknowledgment token.
	Acknowledged AckResult = iota
	// TimedOut means no acknowledgment arrived within the ack timeout.
	TimedOut
)

func (r AckResult) String() string {
	switch r {
	case Acknowledged:
		return "Acknowledged"
	case TimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// IsAcknowledged is a shortcut for r == Acknowledged.
func (r AckResult) IsAcknowledged() bool {
	return r == Acknowledged
}
