//go:build linux

// Command hc05sim exposes a simulated HC-05 module on a pseudo terminal, so
// hc05ctl and other serial tools can be exercised without hardware.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"golang.org/x/sys/unix"

	"i4.energy/across/bluetooth/sim"
)

type options struct {
	LogLevel  string        `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`
	ByteDelay time.Duration `long:"byte-delay" description:"Pause between reply bytes, e.g. 1ms"`
	Loopback  bool          `long:"loopback" description:"Echo data lines back, as a connected peer would"`
	Name      string        `long:"name" description:"Initial module name"`
	BaudRate  uint32        `long:"baud" description:"Initial UART baud rate reported by AT+UART?"`
	Link      string        `long:"link" description:"Create a symlink to the terminal at this path"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(opts.LogLevel)}))

	if err := run(opts, logger); err != nil {
		logger.Error("Simulator failed", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(opts options, logger *slog.Logger) error {
	tty, err := NewPty()
	if err != nil {
		return fmt.Errorf("open pty: %w", err)
	}
	defer tty.Close()

	if err := makeRaw(tty.slave); err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	if opts.Link != "" {
		os.Remove(opts.Link)
		if err := os.Symlink(tty.Name(), opts.Link); err != nil {
			return fmt.Errorf("link %s: %w", opts.Link, err)
		}
		defer os.Remove(opts.Link)
	}
	if err := tty.ReleaseSlave(); err != nil {
		return fmt.Errorf("release slave: %w", err)
	}
	fmt.Printf("tty path: %s\n", tty.Name())

	settings := sim.DefaultSettings()
	if opts.Name != "" {
		settings.Name = opts.Name
	}
	if opts.BaudRate != 0 {
		settings.BaudRate = opts.BaudRate
	}

	simOpts := []sim.Option{
		sim.WithSettings(settings),
		sim.WithByteDelay(opts.ByteDelay),
		sim.WithLogger(logger.With("component", "sim")),
	}
	if opts.Loopback {
		simOpts = append(simOpts, sim.WithLoopback())
	}
	device := sim.New(simOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := waitForClient(ctx, tty); err != nil {
			break
		}
		logger.Info("Client connected", "tty", tty.Name())

		err := device.Serve(ctx, tty)
		if ctx.Err() != nil {
			break
		}
		// A client closing the terminal shows up as EIO on the master.
		if err != nil && !errors.Is(err, unix.EIO) {
			return err
		}
		m := device.Metrics()
		logger.Info("Client disconnected", "commands", m.Commands, "errors", m.Errors, "rx_bytes", m.RxBytes, "tx_bytes", m.TxBytes)
	}

	logger.Info("Shutting down")
	return nil
}

// waitForClient blocks until some process opens the slave side.
func waitForClient(ctx context.Context, tty *UnixPty) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		closed, err := tty.IsSlaveClosed()
		if err != nil {
			return err
		}
		if !closed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// makeRaw puts the terminal into raw mode so CR and LF pass unchanged and
// nothing is echoed.
func makeRaw(f *os.File) error {
	fd := int(f.Fd())
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}
