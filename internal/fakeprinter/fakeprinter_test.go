package fakeprinter

import (
	"bufio"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arloliu/go-gcode/gcode"
	"github.com/arloliu/go-gcode/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	c := Open()
	defer c.Close()

	go func() { _, _ = fmt.Fprint(c, "M115\r\n") }()

	s := bufio.NewScanner(c)
	require.True(t, s.Scan())
	assert.Contains(t, s.Text(), "FIRMWARE_NAME")
	require.True(t, s.Scan())
	assert.Equal(t, "ok", s.Text())
}

func TestWithLink(t *testing.T) {
	log := logger.NewMockLogger().AllowAll()

	cfg, err := gcode.NewLinkConfig("fake",
		gcode.WithHWID(gcode.Ender3HWID),
		gcode.WithPortEnumerator(Enumerator()),
		gcode.WithPortOpener(Opener()),
		gcode.WithSettleDelay(0),
		gcode.WithPostAckDelay(0),
		gcode.WithAckTimeout(time.Second),
		gcode.WithLogger(log),
	)
	require.NoError(t, err)

	link, err := gcode.Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer link.Close()

	assert.Equal(t, PortName, link.PortName())

	results, err := link.WriteSequence([]string{"G28", "M105", "M115", "G1 X10"})
	require.NoError(t, err)
	assert.Equal(t, []gcode.AckResult{gcode.Acknowledged, gcode.Acknowledged, gcode.Acknowledged, gcode.Acknowledged}, results)

	// two status lines plus four acknowledgments
	assert.Equal(t, uint64(6), link.GetMetrics().LineRecvCount.Load())
}
