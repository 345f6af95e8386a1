// Package app wires the maxbot command line onto the runtime packages.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/config"
	"github.com/Jagadish0216/Humanised-Robot/internal/logging"
	"github.com/Jagadish0216/Humanised-Robot/internal/serial"
	"github.com/Jagadish0216/Humanised-Robot/internal/version"
	"github.com/urfave/cli"
)

const appName = "maxbot"

// shutdownGrace bounds the final Stop broadcast after a session ends.
const shutdownGrace = 3 * time.Second

// Runner executes one CLI invocation. Zero-value seams fall back to the process
// defaults: os.Stdin for keyboard and frame input, real serial devices.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	Dial   serial.Dialer
}

// usageError marks failures caused by how the command line was written.
type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute runs args and maps the outcome onto 0 (ok), 1 (runtime failure), or 2 (usage).
func (r Runner) Execute(ctx context.Context, args []string) int {
	app := r.newApp(ctx)
	err := app.Run(append([]string{appName}, args...))
	if err == nil {
		return 0
	}

	var usage usageError
	if errors.As(err, &usage) {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		app.Writer = r.Stderr
		_ = cli.ShowAppHelp(cli.NewContext(app, nil, nil))
		return 2
	}
	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	return 1
}

func (r Runner) newApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "voice, keyboard and gesture control for a two-controller robot"
	app.Version = version.Version
	app.HideVersion = true
	app.Writer = r.Stdout
	app.ErrWriter = r.Stderr
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "path to config.yaml (default $MAXBOT_CONFIG, then $XDG_CONFIG_HOME/maxbot/config.yaml)",
		},
	}
	app.OnUsageError = func(_ *cli.Context, err error, _ bool) error {
		return usagef("%v", err)
	}
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Action = func(c *cli.Context) error {
		if c.NArg() > 0 {
			return usagef("unknown command %q", c.Args().First())
		}
		return cli.ShowAppHelp(c)
	}

	app.Commands = []cli.Command{
		{
			Name:   "voice",
			Usage:  "run the voice and keyboard session driving the motors and relaying to the arms",
			Action: func(c *cli.Context) error { return r.commandVoice(ctx, c.GlobalString("config")) },
		},
		{
			Name:   "gesture",
			Usage:  "run wave detection and own the arm controller",
			Action: func(c *cli.Context) error { return r.commandGesture(ctx, c.GlobalString("config")) },
		},
		{
			Name:      "send",
			Usage:     "write one command to the arm channel",
			ArgsUsage: "SYMBOL",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return usagef("send expects exactly one command symbol")
				}
				return r.commandSend(ctx, c.GlobalString("config"), c.Args().First())
			},
		},
		{
			Name:   "doctor",
			Usage:  "check config, controllers, channel, tools, audio and speech service",
			Action: func(c *cli.Context) error { return r.commandDoctor(ctx, c.GlobalString("config")) },
		},
		{
			Name:   "devices",
			Usage:  "list audio input sources",
			Action: func(*cli.Context) error { return r.commandDevices(ctx) },
		},
		{
			Name:  "version",
			Usage: "print build metadata",
			Action: func(*cli.Context) error {
				fmt.Fprintln(r.Stdout, version.String())
				return nil
			},
		},
	}
	for i := range app.Commands {
		app.Commands[i].OnUsageError = app.OnUsageError
	}
	return app
}

// env is the config and logger shared by every command that touches hardware.
type env struct {
	loaded config.Loaded
	logger *slog.Logger
	close  func()
}

func (r Runner) setup(configPath, role string) (env, error) {
	loaded, err := config.Load(configPath)
	if err != nil {
		return env{}, err
	}

	logger := r.Logger
	closeLog := func() {}
	if logger == nil {
		logRuntime, err := logging.New(logging.Options{
			Role:       role,
			Level:      loaded.Config.Log.Level,
			MaxSizeMB:  loaded.Config.Log.MaxSizeMB,
			MaxBackups: loaded.Config.Log.MaxBackups,
		})
		if err != nil {
			return env{}, fmt.Errorf("setup logging: %w", err)
		}
		logger = logRuntime.Logger
		closeLog = func() { _ = logRuntime.Close() }
		logger.Info("command start", "config", loaded.Path, "log", logRuntime.Path)
	}

	for _, w := range loaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	return env{loaded: loaded, logger: logger, close: closeLog}, nil
}

func (r Runner) stdin() io.Reader {
	if r.Stdin == nil {
		return os.Stdin
	}
	return r.Stdin
}

func (r Runner) linkConfig(name string, cfg config.LinkConfig) serial.Config {
	return serial.Config{
		Name:        name,
		Devices:     cfg.Devices,
		Baud:        cfg.Baud,
		OpenSettle:  cfg.OpenSettle,
		WriteSettle: cfg.WriteSettle,
		AckWindow:   cfg.AckWindow,
		Dial:        r.Dial,
	}
}

// openLink connects one controller. An unreachable controller marked required is fatal.
func (r Runner) openLink(ctx context.Context, name string, cfg config.LinkConfig, logger *slog.Logger) (*serial.Endpoint, error) {
	endpoint := serial.Open(ctx, r.linkConfig(name, cfg), logger)
	if endpoint.Present() {
		fmt.Fprintf(r.Stdout, "%s controller connected on %s\n", name, endpoint.Device())
		return endpoint, nil
	}
	if cfg.Required {
		return nil, fmt.Errorf("%s controller unavailable: %w", name, endpoint.LastErr())
	}
	fmt.Fprintf(r.Stdout, "%s controller not connected; commands will not reach it\n", name)
	return endpoint, nil
}

func shutdownContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
}
