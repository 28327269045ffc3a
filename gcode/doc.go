// Package gcode drives Gcode firmware (Marlin-style 3D printers and CNC
// controllers) over a serial line.
//
// # Protocol
//
// The host sends one command per line, terminated by CR LF and encoded as
// 7-bit ASCII. The firmware answers with the exact line "ok" once the command
// has been processed. Only one command is ever in flight:
//
//	SENDING -> AWAITING_ACK -> ACK_RECEIVED -> post-ack delay -> done
//	                        -> ack timeout elapsed            -> done (TimedOut)
//
// A timeout is reported as the TimedOut result, not as an error. The link stays
// usable and nothing is retried; retry policy belongs to the caller.
//
// # Timing
//
// Two delays work around firmware behavior rather than protocol rules:
//
//   - settle delay: most boards reset when the port opens and drop input while
//     booting, so Connect waits before the link accepts commands.
//   - post-ack delay: some firmware keeps working briefly after sending "ok",
//     so Write waits before returning Acknowledged.
//
// Both are configurable per link, together with the ack timeout.
//
// # Side effects
//
// Each command's leading token is looked up in a DocTable and its brief is
// logged; a missing entry only produces a warning. When a LogSink is enabled
// the raw command text is appended to it before transmission.
package gcode
