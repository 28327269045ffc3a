package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/arloliu/go-gcode/gcode"
	"github.com/arloliu/go-gcode/internal/fakeprinter"
	"github.com/arloliu/go-gcode/logger"
	cli "github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp()
	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error("gcodectl failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	var logFile io.Closer

	return &cli.App{
		Name:  "gcodectl",
		Usage: "Send Gcode to a serial printer, one acknowledged command at a time",
		Flags: globalFlags(),
		Before: func(c *cli.Context) error {
			closer, err := setupLogging(c)
			logFile = closer

			return err
		},
		After: func(*cli.Context) error {
			if logFile != nil {
				return logFile.Close()
			}

			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "ports",
				Usage:  "List serial ports and their hardware IDs",
				Action: listPorts,
			},
			{
				Name:      "send",
				Usage:     "Send each argument as one command",
				ArgsUsage: "CMD...",
				Action:    sendCommands,
			},
			{
				Name:      "run",
				Usage:     "Send a Gcode file, skipping comments and blank lines",
				ArgsUsage: "FILE",
				Action:    runProgram,
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "hwid",
			Usage:   "Select the first port whose hardware ID contains this string",
			Value:   gcode.Ender3HWID,
			EnvVars: []string{"GCODE_HWID"},
		},
		&cli.StringFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Open this port instead of searching by hardware ID",
			EnvVars: []string{"GCODE_PORT"},
		},
		&cli.StringFlag{
			Name:    "name",
			Usage:   "Device name used in logs",
			Value:   "Printer",
			EnvVars: []string{"GCODE_NAME"},
		},
		&cli.IntFlag{
			Name:    "baud",
			Usage:   "Serial baud rate",
			Value:   gcode.DefaultBaudRate,
			EnvVars: []string{"GCODE_BAUD"},
		},
		&cli.StringFlag{
			Name:    "docs",
			Usage:   "YAML file describing Gcode commands, logged as they are sent",
			EnvVars: []string{"GCODE_DOCS"},
		},
		&cli.StringFlag{
			Name:    "gcode-log",
			Usage:   "Truncate this file and record every sent command in it",
			EnvVars: []string{"GCODE_LOG"},
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "Also write log records to this file",
			EnvVars: []string{"GCODE_LOG_FILE"},
		},
		&cli.DurationFlag{
			Name:    "settle",
			Usage:   "Wait after opening the port before the first command",
			Value:   gcode.DefaultSettleDelay,
			EnvVars: []string{"GCODE_SETTLE"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Maximum wait for each acknowledgment",
			Value:   gcode.DefaultAckTimeout,
			EnvVars: []string{"GCODE_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "post-ack",
			Usage:   "Wait after each acknowledgment",
			Value:   gcode.DefaultPostAckDelay,
			EnvVars: []string{"GCODE_POST_ACK"},
		},
		&cli.BoolFlag{
			Name:    "stop-on-timeout",
			Usage:   "Stop sending after the first unacknowledged command",
			EnvVars: []string{"GCODE_STOP_ON_TIMEOUT"},
		},
		&cli.BoolFlag{
			Name:    "fake",
			Usage:   "Talk to an in-process fake printer instead of a serial port",
			EnvVars: []string{"GCODE_FAKE"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level: debug, info, warn or error",
			Value:   "info",
			EnvVars: []string{"GCODE_LOG_LEVEL"},
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "Enable debug logging",
			EnvVars: []string{"DEBUG"},
		},
	}
}

// setupLogging installs a logger writing to the app's writer and, when
// --log-file is set, to that file as well. --debug overrides --log-level.
// The returned closer is nil when no file was opened.
func setupLogging(c *cli.Context) (io.Closer, error) {
	level := logger.ParseLevel(c.String("log-level"))
	if c.Bool("debug") {
		level = logger.DebugLevel
	}

	var out io.Writer = c.App.Writer
	var closer io.Closer

	if path := c.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
		closer = f
	}

	logger.SetLogger(logger.NewSlogWithOutput(out, level, false))

	return closer, nil
}

func linkOptions(c *cli.Context) ([]gcode.LinkOption, error) {
	opts := []gcode.LinkOption{
		gcode.WithBaudRate(c.Int("baud")),
		gcode.WithSettleDelay(c.Duration("settle")),
		gcode.WithAckTimeout(c.Duration("timeout")),
		gcode.WithPostAckDelay(c.Duration("post-ack")),
		gcode.WithLogger(logger.GetLogger()),
	}

	switch {
	case c.Bool("fake"):
		opts = append(opts,
			gcode.WithPortName(fakeprinter.PortName),
			gcode.WithPortOpener(fakeprinter.Opener()))
	case c.String("port") != "":
		opts = append(opts, gcode.WithPortName(c.String("port")))
	default:
		opts = append(opts, gcode.WithHWID(c.String("hwid")))
	}

	if path := c.String("docs"); path != "" {
		docs, err := gcode.LoadDocTableFile(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gcode.WithDocTable(docs))
	}

	if path := c.String("gcode-log"); path != "" {
		opts = append(opts, gcode.WithCommandLog(path))
	}

	return opts, nil
}

func connect(c *cli.Context) (*gcode.Link, error) {
	opts, err := linkOptions(c)
	if err != nil {
		return nil, err
	}

	cfg, err := gcode.NewLinkConfig(c.String("name"), opts...)
	if err != nil {
		return nil, err
	}

	return gcode.Connect(c.Context, cfg)
}

func listPorts(c *cli.Context) error {
	var enum gcode.PortEnumerator = gcode.SerialEnumerator{}
	if c.Bool("fake") {
		enum = fakeprinter.Enumerator()
	}

	ports, err := enum.Enumerate()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Fprintln(c.App.Writer, "no serial ports found")
		return nil
	}

	for _, p := range ports {
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", p.Name, p.HWID)
	}

	return nil
}

func sendCommands(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("send: at least one command is required", 2)
	}

	return sendAll(c, c.Args().Slice())
}

func runProgram(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("run: exactly one FILE is required", 2)
	}

	cmds, err := gcode.ParseProgramFile(c.Args().First())
	if err != nil {
		return err
	}

	return sendAll(c, cmds)
}

func sendAll(c *cli.Context, cmds []string) error {
	link, err := connect(c)
	if err != nil {
		return err
	}
	defer link.Close()

	var seqOpts []gcode.SequenceOption
	if c.Bool("stop-on-timeout") {
		seqOpts = append(seqOpts, gcode.WithStopOnTimeout())
	}

	results, err := link.WriteSequence(cmds, seqOpts...)

	summary := summarize(results)
	link.GetLogger().Info("finished",
		"total", len(cmds),
		"sent", len(results),
		"acknowledged", summary.acked,
		"timed_out", summary.timedOut)

	if err != nil {
		return err
	}

	if summary.timedOut > 0 && c.Bool("stop-on-timeout") {
		return cli.Exit(fmt.Sprintf("%d command(s) not acknowledged", summary.timedOut), 1)
	}

	return nil
}

type resultSummary struct {
	acked    int
	timedOut int
}

func summarize(results []gcode.AckResult) resultSummary {
	var s resultSummary
	for _, r := range results {
		if r.IsAcknowledged() {
			s.acked++
		} else {
			s.timedOut++
		}
	}

	return s
}
