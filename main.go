package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"i4.energy/across/bluetooth/hc05"
)

// globalOptions carry no defaults of their own so that WithFlags can tell
// which ones were given; defaults live in WithDefaults.
type globalOptions struct {
	SerialPort  string        `short:"p" long:"serial-port" description:"Serial port the module is attached to (default /dev/ttyUSB0)"`
	BaudRate    int           `short:"b" long:"baud-rate" description:"Host baud rate (default 38400, the AT mode rate)"`
	LogLevel    string        `long:"log-level" description:"Log level: debug, info, warn, error (default info)"`
	ATTimeout   time.Duration `long:"at-timeout" description:"Timeout of one AT exchange (default 100ms)"`
	BindAddress string        `long:"bind-address" description:"Bind address for the HTTP server (default 0.0.0.0:8080)"`
}

// application is the state shared by all commands.
type application struct {
	parser *flags.Parser
	config *Config
	logger *slog.Logger
	out    io.Writer

	// dialer replaces the serial port when set.
	dialer hc05.Dialer
}

func main() {
	var globals globalOptions
	app := &application{out: os.Stdout}

	parser, err := newParser(&globals, app)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func newParser(globals *globalOptions, app *application) (*flags.Parser, error) {
	parser := flags.NewParser(globals, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if err := app.init(); err != nil {
			return err
		}
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}
	app.parser = parser

	if err := addCommands(parser, app); err != nil {
		return nil, err
	}
	return parser, nil
}

// init loads the configuration and sets up logging once the command line
// has been parsed.
func (app *application) init() error {
	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(app.parser))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	app.config = config

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	app.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	return nil
}

func (app *application) openModule(ctx context.Context) (*hc05.Module, error) {
	dialer := app.dialer
	if dialer == nil {
		mode := hc05.DefaultSerialMode()
		mode.BaudRate = app.config.BaudRate
		dialer = hc05.SerialDialer{
			PortName: app.config.SerialPort,
			Mode:     mode,
		}
	}

	moduleConfig, err := hc05.NewConfigBuilder().
		WithDialer(dialer).
		WithATTimeout(app.config.ATTimeout).
		WithLogger(app.logger).
		Build()
	if err != nil {
		return nil, fmt.Errorf("create module config: %w", err)
	}

	m, err := hc05.New(ctx, moduleConfig)
	if err != nil {
		return nil, fmt.Errorf("open module on %s: %w", app.config.SerialPort, err)
	}
	return m, nil
}

// withModule opens the module, runs fn and closes the module again. fn is
// cancelled on SIGINT or SIGTERM.
func (app *application) withModule(fn func(ctx context.Context, m *hc05.Module) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := app.openModule(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			app.logger.Error("Failed to close module", "error", err)
		}
	}()

	return fn(ctx, m)
}
