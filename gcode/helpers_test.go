package gcode

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testPortName   = "/dev/ttyTEST0"
	testAckTimeout = 200 * time.Millisecond
)

// newTestConfig creates a LinkConfig with no settle or post-ack delay and a
// short ack timeout, opening the given port instead of a real serial device.
func newTestConfig(t *testing.T, port io.ReadWriteCloser, opts ...LinkOption) *LinkConfig {
	t.Helper()

	defaults := []LinkOption{
		WithPortName(testPortName),
		WithPortOpener(staticOpener(port)),
		WithSettleDelay(0),
		WithPostAckDelay(0),
		WithAckTimeout(testAckTimeout),
	}

	cfg, err := NewLinkConfig("test printer", append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestConfig: %v", err)
	}

	return cfg
}

// newTestLink connects a Link to the local end of a net.Pipe and returns the
// remote end for device simulation. The link is closed on cleanup.
func newTestLink(t *testing.T, opts ...LinkOption) (*Link, net.Conn) {
	t.Helper()

	local, remote := newPipeConn(t)

	link, err := Connect(context.Background(), newTestConfig(t, local, opts...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = link.Close() })

	return link, remote
}

func staticOpener(port io.ReadWriteCloser) PortOpener {
	return PortOpenerFunc(func(string, PortParams) (io.ReadWriteCloser, error) {
		return port, nil
	})
}

// newPipeConn creates a net.Pipe pair and registers cleanup.
func newPipeConn(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	return local, remote
}

// trackedPort records whether Close was called.
type trackedPort struct {
	net.Conn
	closed atomic.Bool
}

func (p *trackedPort) Close() error {
	p.closed.Store(true)
	return p.Conn.Close()
}

// fakeDevice reads CRLF-terminated commands from the remote end of a pipe and
// answers each with the lines returned by respond.
type fakeDevice struct {
	conn    net.Conn
	respond func(cmd string) []string

	mu       sync.Mutex
	received []string
}

func startFakeDevice(t *testing.T, conn net.Conn, respond func(cmd string) []string) *fakeDevice {
	t.Helper()

	d := &fakeDevice{conn: conn, respond: respond}
	go d.run()

	return d
}

func (d *fakeDevice) run() {
	r := bufio.NewReader(d.conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}

		cmd := strings.TrimSuffix(line, "\r\n")

		d.mu.Lock()
		d.received = append(d.received, cmd)
		d.mu.Unlock()

		for _, reply := range d.respond(cmd) {
			if _, err := d.conn.Write([]byte(reply)); err != nil {
				return
			}
		}
	}
}

func (d *fakeDevice) Received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.received...)
}

// ackAll answers every command with "ok".
func ackAll(string) []string {
	return []string{"ok\n"}
}

// readExactly reads exactly n bytes from r, failing the test on error.
func readExactly(t *testing.T, r io.Reader, n int) []byte {
	t.Helper()

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("readExactly: %v", err)
	}

	return buf
}

// mustWrite writes data to w, failing the test on error.
func mustWrite(t *testing.T, w io.Writer, data []byte) {
	t.Helper()

	if _, err := w.Write(data); err != nil {
		t.Fatalf("mustWrite: %v", err)
	}
}

// assertNothingSent fails if any byte arrives on conn within d.
func assertNothingSent(t *testing.T, conn net.Conn, d time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(d)))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	require.Error(t, err, "unexpected data %q", buf[:n])

	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	require.True(t, netErr.Timeout())
}
