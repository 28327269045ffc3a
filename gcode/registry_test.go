package gcode

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectNamed(t *testing.T, name string) (*Link, *trackedPort) {
	t.Helper()

	local, remote := newPipeConn(t)
	port := &trackedPort{Conn: local}

	cfg, err := NewLinkConfig(name,
		WithPortName("/dev/"+name),
		WithPortOpener(staticOpener(port)),
		WithSettleDelay(0),
		WithPostAckDelay(0),
		WithAckTimeout(testAckTimeout),
	)
	require.NoError(t, err)

	link, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = link.Close() })

	startFakeDevice(t, remote, ackAll)

	return link, port
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, 0, reg.Len())

	printer, _ := connectNamed(t, "printer")
	cnc, _ := connectNamed(t, "cnc")

	require.NoError(t, reg.Add(printer))
	require.NoError(t, reg.Add(cnc))
	require.ErrorIs(t, reg.Add(printer), ErrLinkExists)
	require.Error(t, reg.Add(nil))

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"cnc", "printer"}, reg.Names())

	got, err := reg.Get("printer")
	require.NoError(t, err)
	assert.Same(t, printer, got)

	_, err = reg.Get("laser")
	require.ErrorIs(t, err, ErrLinkNotFound)

	removed, err := reg.Remove("cnc")
	require.NoError(t, err)
	assert.Same(t, cnc, removed)
	assert.Equal(t, ConnectedState, removed.State(), "Remove must not close the link")

	_, err = reg.Remove("cnc")
	require.ErrorIs(t, err, ErrLinkNotFound)
	assert.Equal(t, []string{"printer"}, reg.Names())
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := NewRegistry()

	printer, printerPort := connectNamed(t, "printer")
	cnc, cncPort := connectNamed(t, "cnc")
	require.NoError(t, reg.Add(printer))
	require.NoError(t, reg.Add(cnc))

	require.NoError(t, reg.CloseAll())

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, DisconnectedState, printer.State())
	assert.Equal(t, DisconnectedState, cnc.State())
	assert.True(t, printerPort.closed.Load())
	assert.True(t, cncPort.closed.Load())
}

func TestRegistry_LinksAreIndependent(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{"printer", "cnc", "laser"} {
		link, _ := connectNamed(t, name)
		require.NoError(t, reg.Add(link))
	}

	var wg sync.WaitGroup
	for _, name := range reg.Names() {
		link, err := reg.Get(name)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := link.WriteSequence([]string{"G28", "G1 X10", "M84"})
			assert.NoError(t, err)
			assert.Equal(t, []AckResult{Acknowledged, Acknowledged, Acknowledged}, results)
		}()
	}
	wg.Wait()

	for _, name := range reg.Names() {
		link, _ := reg.Get(name)
		assert.Equal(t, uint64(3), link.GetMetrics().AckCount.Load(), name)
	}
}
