package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"go.bug.st/serial/enumerator"

	"i4.energy/across/bluetooth/hc05"
)

func addCommands(parser *flags.Parser, app *application) error {
	commands := []struct {
		name, short string
		data        any
	}{
		{"ports", "List serial ports", &portsCommand{app: app}},
		{"ping", "Check that the module answers AT", &pingCommand{app: app}},
		{"info", "Show name, address, version, role, state and UART settings", &infoCommand{app: app}},
		{"uart", "Show or set the module UART parameters", &uartCommand{app: app}},
		{"baud", "Change the module baud rate, keeping stop bit and parity", &baudCommand{app: app}},
		{"name", "Show or set the module name", &nameCommand{app: app}},
		{"pin", "Show or set the pairing PIN", &pinCommand{app: app}},
		{"addr", "Show the Bluetooth address", &queryCommand{app: app, query: addressQuery}},
		{"role", "Show the Bluetooth role", &queryCommand{app: app, query: roleQuery}},
		{"state", "Show the connection state", &queryCommand{app: app, query: stateQuery}},
		{"version", "Show the firmware version", &queryCommand{app: app, query: versionQuery}},
		{"reset", "Restart the module firmware", &resetCommand{app: app}},
		{"restore", "Restore factory settings", &restoreCommand{app: app}},
		{"send", "Send a data mode message", &sendCommand{app: app}},
		{"read", "Read a data mode message", &readCommand{app: app}},
		{"at", "Send a raw AT command and print the response", &atCommand{app: app}},
		{"serve", "Serve the HTTP control API", &serveCommand{app: app}},
	}

	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, "", c.data); err != nil {
			return fmt.Errorf("add command %s: %w", c.name, err)
		}
	}
	return nil
}

type portsCommand struct {
	app *application
}

func (c *portsCommand) Execute([]string) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(c.app.out, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		if p.IsUSB {
			fmt.Fprintf(c.app.out, "%s\tUSB %s:%s %s %s\n", p.Name, p.VID, p.PID, p.SerialNumber, p.Product)
			continue
		}
		fmt.Fprintln(c.app.out, p.Name)
	}
	return nil
}

type pingCommand struct {
	app *application
}

func (c *pingCommand) Execute([]string) error {
	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		start := time.Now()
		if err := m.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "OK (%s)\n", time.Since(start).Round(time.Millisecond))
		return nil
	})
}

type infoCommand struct {
	app *application
}

func (c *infoCommand) Execute([]string) error {
	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		status, err := readStatus(ctx, m)
		if err != nil {
			return err
		}
		p, err := m.SerialParameters(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.app.out, "name:    %s\n", status.Name)
		fmt.Fprintf(c.app.out, "address: %s\n", status.Address)
		fmt.Fprintf(c.app.out, "version: %s\n", status.Version)
		fmt.Fprintf(c.app.out, "role:    %s\n", status.Role)
		fmt.Fprintf(c.app.out, "state:   %s\n", status.State)
		fmt.Fprintf(c.app.out, "uart:    %s\n", p)
		return nil
	})
}

type uartCommand struct {
	app *application

	Set    string `long:"set" value-name:"BAUD,STOP,PARITY" description:"New settings in AT digits, e.g. 115200,0,0"`
	Follow bool   `long:"follow" description:"After --set, reset the module and switch the host port to the new settings"`
}

func (c *uartCommand) Execute([]string) error {
	if c.Set == "" {
		return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
			p, err := m.SerialParameters(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.app.out, p)
			return nil
		})
	}

	p, err := parseSerialParameters(c.Set)
	if err != nil {
		return err
	}
	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		if err := m.SetSerialParameters(ctx, p); err != nil {
			return err
		}
		if !c.Follow {
			return nil
		}
		if err := m.Reset(ctx); err != nil {
			return err
		}
		return m.ConfigureHost(p)
	})
}

// parseSerialParameters reads BAUD,STOP,PARITY as written in AT+UART=.
func parseSerialParameters(s string) (hc05.SerialParameters, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return hc05.SerialParameters{}, fmt.Errorf("expected BAUD,STOP,PARITY, got %q", s)
	}

	baud, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return hc05.SerialParameters{}, fmt.Errorf("baud rate %q: %w", fields[0], err)
	}

	var p hc05.SerialParameters
	p.BaudRate = uint32(baud)
	switch fields[1] {
	case "0":
		p.StopBit = hc05.StopBitOne
	case "1":
		p.StopBit = hc05.StopBitTwo
	default:
		return hc05.SerialParameters{}, fmt.Errorf("stop bit %q: want 0 (one) or 1 (two)", fields[1])
	}
	switch fields[2] {
	case "0":
		p.Parity = hc05.ParityNone
	case "1":
		p.Parity = hc05.ParityOdd
	case "2":
		p.Parity = hc05.ParityEven
	default:
		return hc05.SerialParameters{}, fmt.Errorf("parity %q: want 0 (none), 1 (odd) or 2 (even)", fields[2])
	}
	return p, nil
}

type baudCommand struct {
	app *application

	Args struct {
		Rate uint32 `positional-arg-name:"rate"`
	} `positional-args:"yes" required:"yes"`
}

func (c *baudCommand) Execute([]string) error {
	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		return m.SetBaudRate(ctx, c.Args.Rate)
	})
}

type nameCommand struct {
	app *application

	Set string `long:"set" value-name:"NAME" description:"New module name"`
}

func (c *nameCommand) Execute([]string) error {
	if c.Set != "" {
		if err := hc05.ValidateName(c.Set); err != nil {
			return err
		}
	}
	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		if c.Set != "" {
			return m.SetName(ctx, c.Set)
		}
		name, err := m.Name(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.app.out, name)
		return nil
	})
}

type pinCommand struct {
	app *application

	Set string `long:"set" value-name:"PIN" description:"New four digit PIN"`
}

func (c *pinCommand) Execute([]string) error {
	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		if c.Set != "" {
			return m.SetPIN(ctx, c.Set)
		}
		pin, err := m.PIN(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.app.out, pin)
		return nil
	})
}

// query reads one value from the module and renders it for display.
type query func(ctx context.Context, m *hc05.Module) (string, error)

func addressQuery(ctx context.Context, m *hc05.Module) (string, error) {
	return m.Address(ctx)
}

func roleQuery(ctx context.Context, m *hc05.Module) (string, error) {
	role, err := m.Role(ctx)
	return role.String(), err
}

func stateQuery(ctx context.Context, m *hc05.Module) (string, error) {
	state, err := m.State(ctx)
	return state.String(), err
}

func versionQuery(ctx context.Context, m *hc05.Module) (string, error) {
	return m.Version(ctx)
}

type queryCommand struct {
	app   *application
	query query
}

func (c *queryCommand) Execute([]string) error {
	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		v, err := c.query(ctx, m)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.app.out, v)
		return nil
	})
}

type resetCommand struct {
	app *application
}

func (c *resetCommand) Execute([]string) error {
	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		return m.Reset(ctx)
	})
}

type restoreCommand struct {
	app *application
}

func (c *restoreCommand) Execute([]string) error {
	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		return m.RestoreDefaults(ctx)
	})
}

type sendCommand struct {
	app *application

	Mode string `long:"mode" default:"blocking" choice:"blocking" choice:"interrupt" choice:"dma" description:"Transfer mode"`
	Raw  bool   `long:"raw" description:"Do not append CRLF to the message"`

	Args struct {
		Message []string `positional-arg-name:"message"`
	} `positional-args:"yes" required:"yes"`
}

func (c *sendCommand) Execute([]string) error {
	mode, err := hc05.ParseTransferMode(c.Mode)
	if err != nil {
		return err
	}
	msg := strings.Join(c.Args.Message, " ")
	if !c.Raw {
		msg += "\r\n"
	}

	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		if err := m.SendMessage(ctx, mode, []byte(msg)); err != nil {
			return err
		}
		// An armed transmit only reports its outcome to the log, so wait
		// for it before the module is closed.
		return waitTransmitted(ctx, m, 5*time.Second)
	})
}

func waitTransmitted(ctx context.Context, m *hc05.Module, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, tx := m.Armed(); !tx {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("transmit still armed: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

type readCommand struct {
	app *application

	Mode    string        `long:"mode" default:"blocking" choice:"blocking" choice:"interrupt" choice:"dma" description:"Transfer mode"`
	Size    int           `long:"size" default:"20" description:"Bytes to wait for in interrupt and dma mode (1-20)"`
	Gap     time.Duration `long:"gap" description:"Idle gap that ends a blocking read (default: the AT timeout)"`
	Timeout time.Duration `long:"timeout" default:"10s" description:"How long to wait for a message"`
}

func (c *readCommand) Execute([]string) error {
	mode, err := hc05.ParseTransferMode(c.Mode)
	if err != nil {
		return err
	}

	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		ctx, cancel := context.WithTimeout(ctx, c.Timeout)
		defer cancel()

		var msg []byte
		if mode == hc05.ModeBlocking {
			msg, err = readBlocking(ctx, m, c.Gap)
		} else {
			var rb hc05.ReceiveBuffer
			if err := m.ReadMessageAsync(ctx, mode, &rb, c.Size); err != nil {
				return err
			}
			msg, err = rb.Wait(ctx)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "%q\n", msg)
		return nil
	})
}

// readBlocking retries ReadMessage until something arrives or ctx ends.
func readBlocking(ctx context.Context, m *hc05.Module, gap time.Duration) ([]byte, error) {
	buf := make([]byte, 256)
	for {
		n, err := m.ReadMessage(ctx, buf, gap)
		switch {
		case err == nil:
			return buf[:n], nil
		case errors.Is(err, hc05.ErrTimeout) && ctx.Err() == nil:
			continue
		default:
			return nil, err
		}
	}
}

type atCommand struct {
	app *application

	Args struct {
		Command []string `positional-arg-name:"command"`
	} `positional-args:"yes" required:"yes"`
}

func (c *atCommand) Execute([]string) error {
	line := strings.Join(c.Args.Command, " ")
	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		lines, err := m.Exec(ctx, line)
		for _, l := range lines {
			fmt.Fprintln(c.app.out, l)
		}
		return err
	})
}

type serveCommand struct {
	app *application
}

func (c *serveCommand) Execute([]string) error {
	return c.app.withModule(func(ctx context.Context, m *hc05.Module) error {
		logger := c.app.logger
		logger.Info("Starting HC-05 control API", "port", c.app.config.SerialPort)

		httpServer := &http.Server{
			Addr: c.app.config.BindAddress,
			Handler: &Server{
				Logger: logger.With("component", "server"),
				Module: m,
			},
		}

		errc := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server", "address", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errc <- err
			}
			close(errc)
		}()

		select {
		case err, ok := <-errc:
			if ok {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("Received shutdown signal")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Closing HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
}
