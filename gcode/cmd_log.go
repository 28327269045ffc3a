package gcode

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"
)

// LogSink is an append-only destination for the text of sent commands.
type LogSink interface {
	// Append records one command.
	Append(cmd string) error
	// Close flushes and releases the sink.
	Close() error
}

// FileLogSink writes one command per line to a file.
//
// The file is truncated when the sink is created and appended to afterwards,
// so it holds exactly the commands sent during the current session.
type FileLogSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
}

var _ LogSink = (*FileLogSink)(nil)

// NewFileLogSink creates or truncates path and returns a sink writing to it.
func NewFileLogSink(path string) (*FileLogSink, error) {
	if path == "" {
		return nil, errors.New("gcode: command log path is empty")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("gcode: create command log: %w", err)
	}

	return &FileLogSink{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the file path of the sink.
func (s *FileLogSink) Path() string { return s.path }

// Append implements LogSink. Every record is flushed so the file can be
// tailed while a job runs.
func (s *FileLogSink) Append(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return os.ErrClosed
	}

	if _, err := s.w.WriteString(cmd); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}

	return s.w.Flush()
}

// Close implements LogSink. It is safe to call more than once.
func (s *FileLogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}

	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	s.f = nil

	return errors.Join(flushErr, closeErr)
}
