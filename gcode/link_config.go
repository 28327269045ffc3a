package gcode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-gcode/logger"
)

// Default timings. The two settle delays are firmware workarounds, not part of
// the protocol: most boards reset when the port opens and drop input while
// booting, and some keep processing briefly after sending "ok".
const (
	DefaultSettleDelay  = 10 * time.Second
	DefaultAckTimeout   = 60 * time.Second
	DefaultPostAckDelay = 1 * time.Second

	DefaultAckToken       = "ok"
	DefaultLineQueueSize  = 64
	DefaultCloseWaitLimit = 3 * time.Second
)

// Timing range limits.
const (
	MinSettleDelay = 0
	MaxSettleDelay = 60 * time.Second

	MinAckTimeout = 10 * time.Millisecond
	MaxAckTimeout = 10 * time.Minute

	MinPostAckDelay = 0
	MaxPostAckDelay = 10 * time.Second
)

// Ender 3 preset values.
const (
	Ender3HWID        = "1A86:7523"
	Ender3SettleDelay = 6 * time.Second
)

// LinkConfig holds all configuration for a Link.
type LinkConfig struct {
	// name identifies the device in logs, e.g. "Ender 3".
	name string

	// hwid is matched as a substring against enumerated port HWIDs.
	hwid string
	// portName bypasses enumeration when set.
	portName string

	params PortParams

	settleDelay  time.Duration
	ackTimeout   time.Duration
	postAckDelay time.Duration

	ackToken      string
	lineQueueSize int

	// commandLogPath enables the command log on connect when non-empty.
	commandLogPath string

	docs       DocTable
	opener     PortOpener
	enumerator PortEnumerator

	logger logger.Logger
}

// NewLinkConfig creates a new link configuration.
//
// name is used for logging only. Either WithHWID or WithPortName must be given.
// opts are functional options applied in order; see With* functions.
func NewLinkConfig(name string, opts ...LinkOption) (*LinkConfig, error) {
	cfg := &LinkConfig{
		name:          name,
		params:        DefaultPortParams(),
		settleDelay:   DefaultSettleDelay,
		ackTimeout:    DefaultAckTimeout,
		postAckDelay:  DefaultPostAckDelay,
		ackToken:      DefaultAckToken,
		lineQueueSize: DefaultLineQueueSize,
		docs:          MapDocTable{},
		opener:        SerialOpener{},
		enumerator:    SerialEnumerator{},
		logger:        logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.hwid == "" && cfg.portName == "" {
		return nil, errors.New("gcode: either HWID or port name must be set")
	}

	return cfg, nil
}

// --- Getters ---

// Name returns the device name used in logs.
func (cfg *LinkConfig) Name() string { return cfg.name }

// HWID returns the HWID selector.
func (cfg *LinkConfig) HWID() string { return cfg.hwid }

// PortName returns the explicit port name, if any.
func (cfg *LinkConfig) PortName() string { return cfg.portName }

// PortParams returns the serial line parameters.
func (cfg *LinkConfig) PortParams() PortParams { return cfg.params }

// SettleDelay returns the wait between opening the port and accepting commands.
func (cfg *LinkConfig) SettleDelay() time.Duration { return cfg.settleDelay }

// AckTimeout returns the maximum wait for an acknowledgment.
func (cfg *LinkConfig) AckTimeout() time.Duration { return cfg.ackTimeout }

// PostAckDelay returns the wait after an acknowledgment before Write returns.
func (cfg *LinkConfig) PostAckDelay() time.Duration { return cfg.postAckDelay }

// AckToken returns the acknowledgment line, without its terminator.
func (cfg *LinkConfig) AckToken() string { return cfg.ackToken }

// CommandLogPath returns the command log path enabled on connect.
func (cfg *LinkConfig) CommandLogPath() string { return cfg.commandLogPath }

// DocTable returns the command documentation table.
func (cfg *LinkConfig) DocTable() DocTable { return cfg.docs }

// GetLogger returns the configured logger.
func (cfg *LinkConfig) GetLogger() logger.Logger { return cfg.logger }

// --- LinkOption ---

// LinkOption is a functional option for configuring a LinkConfig.
type LinkOption interface {
	apply(*LinkConfig) error
}

type linkOptFunc func(*LinkConfig) error

func (f linkOptFunc) apply(cfg *LinkConfig) error { return f(cfg) }

// Ender3Options returns the options matching a stock Creality Ender 3
// (CH340 USB bridge, shorter boot time).
func Ender3Options() []LinkOption {
	return []LinkOption{
		WithHWID(Ender3HWID),
		WithSettleDelay(Ender3SettleDelay),
	}
}

// WithHWID selects the first port whose HWID contains s.
func WithHWID(s string) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("gcode: HWID selector must not be empty")
		}
		cfg.hwid = s

		return nil
	})
}

// WithPortName opens the named port directly instead of enumerating.
func WithPortName(name string) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if name == "" {
			return errors.New("gcode: port name must not be empty")
		}
		cfg.portName = name

		return nil
	})
}

// WithBaudRate overrides the 115200 default.
func WithBaudRate(baud int) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if baud <= 0 {
			return fmt.Errorf("gcode: baud rate %d must be positive", baud)
		}
		cfg.params.BaudRate = baud

		return nil
	})
}

// WithSettleDelay sets the post-open settle delay. Range: 0–60s.
func WithSettleDelay(d time.Duration) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if d < MinSettleDelay || d > MaxSettleDelay {
			return fmt.Errorf("gcode: settle delay %v out of range [%v, %v]", d, time.Duration(MinSettleDelay), MaxSettleDelay)
		}
		cfg.settleDelay = d

		return nil
	})
}

// WithAckTimeout sets the acknowledgment timeout. Range: 10ms–10m.
func WithAckTimeout(d time.Duration) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if d < MinAckTimeout || d > MaxAckTimeout {
			return fmt.Errorf("gcode: ack timeout %v out of range [%v, %v]", d, MinAckTimeout, MaxAckTimeout)
		}
		cfg.ackTimeout = d

		return nil
	})
}

// WithPostAckDelay sets the wait after each acknowledgment. Range: 0–10s.
func WithPostAckDelay(d time.Duration) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if d < MinPostAckDelay || d > MaxPostAckDelay {
			return fmt.Errorf("gcode: post-ack delay %v out of range [%v, %v]", d, time.Duration(MinPostAckDelay), MaxPostAckDelay)
		}
		cfg.postAckDelay = d

		return nil
	})
}

// WithAckToken changes the acknowledgment line. The match stays exact:
// token followed by LF, nothing else.
func WithAckToken(token string) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if token == "" || strings.ContainsAny(token, "\r\n") {
			return fmt.Errorf("gcode: invalid ack token %q", token)
		}
		cfg.ackToken = token

		return nil
	})
}

// WithLineQueueSize sets how many received lines may be buffered between the
// reader and the command in flight.
func WithLineQueueSize(size int) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if size < 1 {
			return errors.New("gcode: line queue size must be >= 1")
		}
		cfg.lineQueueSize = size

		return nil
	})
}

// WithDocTable sets the command documentation table.
func WithDocTable(t DocTable) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if t == nil {
			return errors.New("gcode: doc table must not be nil")
		}
		cfg.docs = t

		return nil
	})
}

// WithCommandLog truncates path on connect and appends every sent command to it.
func WithCommandLog(path string) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if path == "" {
			return errors.New("gcode: command log path must not be empty")
		}
		cfg.commandLogPath = path

		return nil
	})
}

// WithLogger sets the logger for the link.
func WithLogger(l logger.Logger) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if l == nil {
			return errors.New("gcode: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithPortOpener replaces the serial port opener.
func WithPortOpener(o PortOpener) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if o == nil {
			return errors.New("gcode: port opener must not be nil")
		}
		cfg.opener = o

		return nil
	})
}

// WithPortEnumerator replaces the serial port enumerator.
func WithPortEnumerator(e PortEnumerator) LinkOption {
	return linkOptFunc(func(cfg *LinkConfig) error {
		if e == nil {
			return errors.New("gcode: port enumerator must not be nil")
		}
		cfg.enumerator = e

		return nil
	})
}
