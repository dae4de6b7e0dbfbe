package hc05

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialDialer opens an HC-05 module attached to a serial port using
// go.bug.st/serial. Modules leave the factory in AT mode at 38400 baud,
// 8 data bits, no parity and one stop bit; this is used when Mode is nil.
type SerialDialer struct {
	PortName string
	Mode     *serial.Mode
}

// DefaultSerialMode is the line setting of an HC-05 in AT command mode.
func DefaultSerialMode() *serial.Mode {
	return &serial.Mode{
		BaudRate: 38400,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Dial opens the port. It fails without touching the port if ctx is
// already done.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if d.PortName == "" {
		return nil, errors.New("hc05: serial port name is required")
	}
	if ctx == nil {
		return nil, errors.New("hc05: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = DefaultSerialMode()
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", d.PortName, err)
	}
	return newSerialTransport(port), nil
}

// serialTransport drives a go.bug.st/serial port. The port read timeout is
// what bounds every single-byte read.
type serialTransport struct {
	port serial.Port

	mu          sync.Mutex
	readTimeout time.Duration

	writes writeQueue
}

func newSerialTransport(port serial.Port) *serialTransport {
	return &serialTransport{port: port, readTimeout: serial.NoTimeout}
}

var (
	_ Transport      = (*serialTransport)(nil)
	_ AsyncTransport = (*serialTransport)(nil)
	_ HostConfigurer = (*serialTransport)(nil)
)

func (t *serialTransport) setReadTimeout(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d == t.readTimeout {
		return nil
	}
	if err := t.port.SetReadTimeout(d); err != nil {
		return err
	}
	t.readTimeout = d
	return nil
}

func (t *serialTransport) write(p []byte) error {
	for len(p) > 0 {
		n, err := t.port.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (t *serialTransport) Transmit(p []byte, timeout time.Duration) error {
	return t.writes.within(func() error { return t.write(p) }, timeout)
}

func (t *serialTransport) ReceiveByte(timeout time.Duration) (byte, error) {
	if err := t.setReadTimeout(timeout); err != nil {
		return 0, err
	}
	var b [1]byte
	n, err := t.port.Read(b[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	return b[0], nil
}

func (t *serialTransport) Receive(p []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for off := 0; off < len(p); {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		if err := t.setReadTimeout(remaining); err != nil {
			return err
		}
		n, err := t.port.Read(p[off:])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}

func (t *serialTransport) nextByte() (byte, error) {
	if err := t.setReadTimeout(serial.NoTimeout); err != nil {
		return 0, err
	}
	var b [1]byte
	for {
		n, err := t.port.Read(b[:])
		if err != nil {
			return 0, err
		}
		if n == 1 {
			return b[0], nil
		}
	}
}

func (t *serialTransport) fill(p []byte) (int, error) {
	if err := t.setReadTimeout(serial.NoTimeout); err != nil {
		return 0, err
	}
	off := 0
	for off < len(p) {
		n, err := t.port.Read(p[off:])
		off += n
		if err != nil {
			return off, err
		}
	}
	return off, nil
}

func (t *serialTransport) TransmitAsync(mode TransferMode, p []byte, done func(err error)) error {
	return transmitAsync(t, &t.writes, mode, p, done)
}

func (t *serialTransport) ReceiveAsync(mode TransferMode, p []byte, done func(n int, err error)) error {
	return receiveAsync(t, mode, p, done)
}

// ConfigureHost switches the local port to the given line settings, e.g.
// after the module was told to use them.
func (t *serialTransport) ConfigureHost(p SerialParameters) error {
	mode := &serial.Mode{BaudRate: int(p.BaudRate), DataBits: 8}
	switch p.StopBit {
	case StopBitOne:
		mode.StopBits = serial.OneStopBit
	case StopBitTwo:
		mode.StopBits = serial.TwoStopBits
	default:
		return &PreconditionError{Op: "configure host", Param: "stop bit", Value: p.StopBit}
	}
	switch p.Parity {
	case ParityNone:
		mode.Parity = serial.NoParity
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	default:
		return &PreconditionError{Op: "configure host", Param: "parity", Value: p.Parity}
	}
	return t.port.SetMode(mode)
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}
