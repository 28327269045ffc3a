package gcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/arloliu/go-gcode/internal/pool"
	"github.com/arloliu/go-gcode/logger"
)

// Link is a synchronous command channel to one Gcode device.
//
// Exactly one command is in flight at a time: Write transmits a line and
// blocks until the device acknowledges it or the ack timeout elapses. Writes
// from several goroutines are serialized. Links to different devices share no
// state and may be used concurrently.
type Link struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *LinkConfig
	logger logger.Logger

	portName  string
	port      io.ReadWriteCloser
	portOnce  sync.Once
	portErr   error
	stopClose func() bool
	reader    *lineReader
	ackLine   []byte

	state AtomicConnState

	// writeMu serializes commands and guards sink.
	writeMu sync.Mutex
	sink    LogSink

	closeOnce sync.Once
	closeErr  error

	metrics LinkMetrics
}

// Connect resolves the device, opens its port and waits for the firmware to
// settle before returning a usable Link.
//
// ctx bounds the lifetime of the link: when it is cancelled the port is
// released and any command waiting for its acknowledgment returns
// ErrConnClosed. Every failure is reported as an error wrapping ErrConnection
// and leaves no port open.
func Connect(ctx context.Context, cfg *LinkConfig) (*Link, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: link config is nil", ErrConnection)
	}

	l := &Link{
		cfg:     cfg,
		logger:  cfg.logger.With("link", cfg.name),
		ackLine: []byte(cfg.ackToken + "\n"),
	}
	l.ctx, l.cancel = context.WithCancel(ctx)

	if err := l.connect(); err != nil {
		l.cancel()
		return nil, err
	}

	return l, nil
}

func (l *Link) connect() error {
	if !l.state.ToConnecting() {
		return fmt.Errorf("%w: link state is %s", ErrConnection, l.state.String())
	}

	name, err := l.resolvePort()
	if err != nil {
		l.state.ToDisconnected()
		l.logger.Error("unable to find device", "hwid", l.cfg.hwid, "error", err)

		return err
	}

	port, err := l.cfg.opener.Open(name, l.cfg.params)
	if err != nil {
		l.state.ToDisconnected()
		l.logger.Error("unable to connect", "port", name, "error", err)

		return fmt.Errorf("%w: open %s: %w", ErrConnection, name, err)
	}

	l.portName = name
	l.port = port
	l.stopClose = context.AfterFunc(l.ctx, func() {
		l.state.ToDisconnected()
		_ = l.closePort()
	})

	l.reader = newLineReader(l.ctx, port, l.cfg.lineQueueSize)
	go l.reader.run()

	l.logger.Info("connected", "port", name, "baud", l.cfg.params.BaudRate)

	l.logger.Debug("waiting for firmware to settle", "delay", l.cfg.settleDelay)
	if err := pool.Sleep(l.ctx, l.cfg.settleDelay); err != nil {
		l.cancel()
		_ = l.teardown()

		return fmt.Errorf("%w: interrupted while settling: %w", ErrConnection, err)
	}

	if l.cfg.commandLogPath != "" {
		if err := l.BeginLog(l.cfg.commandLogPath); err != nil {
			l.cancel()
			_ = l.teardown()

			return fmt.Errorf("%w: %w", ErrConnection, err)
		}
	}

	l.state.ToConnected()

	return nil
}

// resolvePort returns the explicit port name or the first enumerated port
// whose HWID contains the configured selector.
func (l *Link) resolvePort() (string, error) {
	if l.cfg.portName != "" {
		return l.cfg.portName, nil
	}

	ports, err := l.cfg.enumerator.Enumerate()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConnection, err)
	}

	port, ok := SelectPort(ports, l.cfg.hwid)
	if !ok {
		return "", fmt.Errorf("%w: no device matches HWID %q among %d ports", ErrConnection, l.cfg.hwid, len(ports))
	}

	l.logger.Info("device found", "port", port.Name, "hwid", port.HWID)

	return port.Name, nil
}

// Write sends one command and waits for its acknowledgment.
//
// It returns Acknowledged once the device has answered with the ack line and
// the post-ack delay has elapsed, or TimedOut when no acknowledgment arrived in
// time; a timeout is not an error and leaves the link usable. Rejected
// commands (ErrInvalidCommand, ErrEncoding) are reported before anything is
// logged or transmitted. The result is only meaningful when err is nil.
func (l *Link) Write(cmd string) (AckResult, error) {
	// Encoding is checked before the doc log and the sink append, so a
	// rejected command leaves no trace.
	wire, err := EncodeCommand(cmd)
	if err != nil {
		l.metrics.incCmdErrCount()
		l.logger.Warn("command rejected", "cmd", cmd, "error", err)

		return TimedOut, err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if !l.state.IsUsable() {
		l.metrics.incCmdErrCount()
		return TimedOut, fmt.Errorf("%w: state is %s", ErrNotConnected, l.state.String())
	}

	// The lifetime context may end before the close callback has run.
	if err := l.ctx.Err(); err != nil {
		l.metrics.incCmdErrCount()
		return TimedOut, fmt.Errorf("%w: %w", ErrConnClosed, err)
	}

	l.logger.Debug("writing command", "cmd", cmd)
	l.logDoc(cmd)
	l.appendToSink(cmd)
	l.discardStaleLines()

	l.metrics.incInflightCount()
	defer l.metrics.decInflightCount()

	if err := l.writeAll(wire); err != nil {
		l.metrics.incCmdErrCount()
		l.logger.Error("failed to write command", "cmd", cmd, "error", err)

		return TimedOut, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	l.metrics.incCmdSendCount()

	return l.waitForAck(cmd)
}

// waitForAck blocks until the ack line arrives or the ack timeout elapses,
// then observes the post-ack delay.
func (l *Link) waitForAck(cmd string) (AckResult, error) {
	timer := pool.GetTimer(l.cfg.ackTimeout)
	defer pool.PutTimer(timer)

	for acked := false; !acked; {
		select {
		case <-l.ctx.Done():
			l.metrics.incCmdErrCount()
			return TimedOut, ErrConnClosed

		case <-timer.C:
			l.metrics.incTimeoutCount()
			l.state.ToTimedOut()
			l.logger.Warn("connection timed out, command not acknowledged",
				"cmd", cmd,
				"timeout", l.cfg.ackTimeout)

			return TimedOut, nil

		case line, ok := <-l.reader.lines:
			if !ok {
				l.metrics.incCmdErrCount()
				l.logger.Error("device stopped responding", "cmd", cmd, "error", l.reader.Err())

				return TimedOut, fmt.Errorf("%w: %w", ErrConnClosed, l.reader.Err())
			}

			l.metrics.incLineRecvCount()

			if bytes.Equal(line, l.ackLine) {
				l.logger.Info("response", "cmd", cmd, "line", l.cfg.ackToken)
				acked = true

				continue
			}

			l.logger.Debug("device output", "line", strings.TrimRight(string(line), "\r\n"))
		}
	}

	if err := pool.Sleep(l.ctx, l.cfg.postAckDelay); err != nil {
		l.metrics.incCmdErrCount()
		return TimedOut, ErrConnClosed
	}

	l.state.ToConnected()
	l.metrics.incAckCount()

	return Acknowledged, nil
}

// HomeCommand homes all axes.
const HomeCommand = "G28"

// Home writes HomeCommand.
func (l *Link) Home() (AckResult, error) {
	return l.Write(HomeCommand)
}

// SequenceOption configures WriteSequence.
type SequenceOption func(*sequenceOptions)

type sequenceOptions struct {
	stopOnTimeout bool
}

// WithStopOnTimeout stops the sequence after the first TimedOut result.
func WithStopOnTimeout() SequenceOption {
	return func(o *sequenceOptions) {
		o.stopOnTimeout = true
	}
}

// WriteSequence writes cmds one after another and returns one result per
// command sent, in order.
//
// By default a TimedOut result does not stop the sequence. Any error does: the
// results gathered so far are returned together with the error, which names
// the index of the failing command.
func (l *Link) WriteSequence(cmds []string, opts ...SequenceOption) ([]AckResult, error) {
	var so sequenceOptions
	for _, opt := range opts {
		opt(&so)
	}

	results := make([]AckResult, 0, len(cmds))
	total := len(cmds)

	for i, cmd := range cmds {
		l.logger.Debug("writing sequence command",
			"cmd", cmd,
			"index", i,
			"total", total,
			"progress", fmt.Sprintf("%.0f%%", float64(i)*100/float64(total)))

		result, err := l.Write(cmd)
		if err != nil {
			return results, fmt.Errorf("command %d (%q): %w", i, cmd, err)
		}

		results = append(results, result)

		if result == TimedOut && so.stopOnTimeout {
			l.logger.Warn("sequence stopped on timeout", "index", i, "total", total)
			break
		}
	}

	return results, nil
}

// BeginLog truncates path and appends every subsequently sent command to it.
// A previously enabled sink is closed.
func (l *Link) BeginLog(path string) error {
	sink, err := NewFileLogSink(path)
	if err != nil {
		return err
	}

	if err := l.EnableLog(sink); err != nil {
		_ = sink.Close()
		return err
	}

	l.logger.Debug("command logging turned on", "path", path)

	return nil
}

// EnableLog mirrors every subsequently sent command to sink, replacing and
// closing any previously enabled sink.
func (l *Link) EnableLog(sink LogSink) error {
	if sink == nil {
		return errors.New("gcode: log sink is nil")
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	err := l.disableLogLocked()
	l.sink = sink

	return err
}

// DisableLog stops mirroring commands and closes the current sink.
func (l *Link) DisableLog() error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	return l.disableLogLocked()
}

// LogEnabled reports whether sent commands are being mirrored.
func (l *Link) LogEnabled() bool {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	return l.sink != nil
}

func (l *Link) disableLogLocked() error {
	if l.sink == nil {
		return nil
	}

	err := l.sink.Close()
	l.sink = nil

	return err
}

// Close releases the port and the command log. It is safe to call more than
// once; a closed link cannot be reconnected.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		l.logger.Debug("closing link", "state", l.state.String())

		l.cancel()
		portErr := l.teardown()

		l.writeMu.Lock()
		sinkErr := l.disableLogLocked()
		l.writeMu.Unlock()

		l.closeErr = errors.Join(portErr, sinkErr)
		l.logger.Info("disconnected", "port", l.portName)
	})

	return l.closeErr
}

// teardown closes the port and waits for the reader to stop.
func (l *Link) teardown() error {
	if l.stopClose != nil {
		l.stopClose()
	}

	err := l.closePort()

	if l.reader != nil {
		timer := pool.GetTimer(DefaultCloseWaitLimit)
		defer pool.PutTimer(timer)

		select {
		case <-l.reader.done:
		case <-timer.C:
			l.logger.Warn("line reader did not stop after port close", "port", l.portName)
		}
	}

	l.state.ToDisconnected()

	return err
}

func (l *Link) closePort() error {
	l.portOnce.Do(func() {
		if l.port == nil {
			return
		}
		if err := l.port.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			l.portErr = err
		}
	})

	return l.portErr
}

// --- Command side effects ---

// logDoc logs the documentation brief of cmd's leading token, or a warning
// when the table has no entry for it.
func (l *Link) logDoc(cmd string) {
	token := LeadingToken(cmd)

	entry, ok := l.cfg.docs.Lookup(token)
	if !ok {
		l.logger.Warn("docs not found", "token", token)
		return
	}

	l.logger.Info(strings.TrimSpace(entry.Brief), "cmd", cmd, "token", token)
}

func (l *Link) appendToSink(cmd string) {
	if l.sink == nil {
		return
	}

	if err := l.sink.Append(cmd); err != nil {
		l.logger.Error("failed to append command to log", "cmd", cmd, "error", err)
	}
}

// discardStaleLines drops lines the device sent while no command was in
// flight (boot banners, echo output, late acknowledgments) so they cannot be
// mistaken for the answer to the next command.
func (l *Link) discardStaleLines() {
	for {
		select {
		case line, ok := <-l.reader.lines:
			if !ok {
				return
			}

			l.metrics.incLineRecvCount()
			l.logger.Debug("discarding stale line", "line", strings.TrimRight(string(line), "\r\n"))
		default:
			return
		}
	}
}

func (l *Link) writeAll(data []byte) error {
	for written := 0; written < len(data); {
		n, err := l.port.Write(data[written:])
		written += n

		if err != nil {
			return err
		}
	}

	return nil
}

// --- Accessors ---

// Name returns the device name used in logs.
func (l *Link) Name() string { return l.cfg.name }

// PortName returns the name of the opened port.
func (l *Link) PortName() string { return l.portName }

// State returns the current connection state.
func (l *Link) State() ConnState { return l.state.Get() }

// Config returns the link configuration.
func (l *Link) Config() *LinkConfig { return l.cfg }

// GetLogger returns the logger associated with the link.
func (l *Link) GetLogger() logger.Logger { return l.logger }

// GetMetrics returns the metrics associated with the link.
func (l *Link) GetMetrics() *LinkMetrics { return &l.metrics }
