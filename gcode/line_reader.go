package gcode

import (
	"bufio"
	"context"
	"io"
)

// lineReader owns the blocking reads on a port.
//
// It runs in its own goroutine and forwards every complete LF-terminated line,
// terminator included, to lines. The reads have no timeout of their own; the
// goroutine ends when the port is closed or returns an error, after which
// lines is closed and err holds the cause.
type lineReader struct {
	ctx   context.Context
	r     *bufio.Reader
	lines chan []byte
	done  chan struct{}

	// err is written before lines is closed and read only after observing
	// the close.
	err error
}

func newLineReader(ctx context.Context, r io.Reader, queueSize int) *lineReader {
	return &lineReader{
		ctx:   ctx,
		r:     bufio.NewReader(r),
		lines: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
}

func (lr *lineReader) run() {
	defer close(lr.done)
	defer close(lr.lines)

	for {
		line, err := lr.r.ReadBytes('\n')
		if err != nil {
			// A partial line at EOF can never be an acknowledgment.
			lr.err = err
			return
		}

		select {
		case <-lr.ctx.Done():
			lr.err = lr.ctx.Err()
			return
		case lr.lines <- line:
		}
	}
}

// Err returns why the reader stopped. It is only valid once lines is closed.
func (lr *lineReader) Err() error {
	if lr.err == nil {
		return io.EOF
	}

	return lr.err
}
