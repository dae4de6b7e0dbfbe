package hc05

import (
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"
)

// UARTTransport drives a module wired to a microcontroller UART, anything
// implementing drivers.UART (machine.UART, uartx.UART, ...).
//
// A UART cannot block on a read, so receives poll Buffered until data is
// there or the timeout expires. Interrupt mode takes each byte as soon as it
// is buffered; DMA mode waits until the whole transfer is buffered and then
// reads it in one go.
type UARTTransport struct {
	uart drivers.UART
	// Poll is the pause between two looks at the receive buffer. Zero
	// yields to the scheduler instead of sleeping.
	Poll time.Duration
	// Burst caps how many bytes DMA mode waits for at once, so transfers
	// larger than the driver's ring buffer still complete.
	Burst int

	closed atomic.Bool

	writes writeQueue
}

var (
	_ Transport      = (*UARTTransport)(nil)
	_ AsyncTransport = (*UARTTransport)(nil)
)

func NewUARTTransport(uart drivers.UART) *UARTTransport {
	return &UARTTransport{uart: uart, Poll: 100 * time.Microsecond, Burst: 64}
}

func (t *UARTTransport) pause() {
	if t.Poll > 0 {
		time.Sleep(t.Poll)
		return
	}
	runtime.Gosched()
}

// await polls until at least n bytes are buffered. A zero deadline waits
// until the transport is closed.
func (t *UARTTransport) await(n int, deadline time.Time) error {
	for t.uart.Buffered() < n {
		if t.closed.Load() {
			return io.ErrClosedPipe
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return ErrTimeout
		}
		t.pause()
	}
	return nil
}

func (t *UARTTransport) readFull(p []byte) error {
	for off := 0; off < len(p); {
		n, err := t.uart.Read(p[off:])
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrNoProgress
		}
		off += n
	}
	return nil
}

func (t *UARTTransport) write(p []byte) error {
	if t.closed.Load() {
		return io.ErrClosedPipe
	}
	for len(p) > 0 {
		n, err := t.uart.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (t *UARTTransport) Transmit(p []byte, timeout time.Duration) error {
	return t.writes.within(func() error { return t.write(p) }, timeout)
}

func (t *UARTTransport) ReceiveByte(timeout time.Duration) (byte, error) {
	if err := t.await(1, time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	var b [1]byte
	if err := t.readFull(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (t *UARTTransport) Receive(p []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for off := 0; off < len(p); {
		if err := t.await(1, deadline); err != nil {
			return err
		}
		n := min(t.uart.Buffered(), len(p)-off)
		if err := t.readFull(p[off : off+n]); err != nil {
			return err
		}
		off += n
	}
	return nil
}

func (t *UARTTransport) nextByte() (byte, error) {
	if err := t.await(1, time.Time{}); err != nil {
		return 0, err
	}
	var b [1]byte
	if err := t.readFull(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (t *UARTTransport) fill(p []byte) (int, error) {
	burst := t.Burst
	if burst <= 0 {
		burst = len(p)
	}
	off := 0
	for off < len(p) {
		want := min(burst, len(p)-off)
		if err := t.await(want, time.Time{}); err != nil {
			return off, err
		}
		if err := t.readFull(p[off : off+want]); err != nil {
			return off, err
		}
		off += want
	}
	return off, nil
}

func (t *UARTTransport) TransmitAsync(mode TransferMode, p []byte, done func(err error)) error {
	return transmitAsync(t, &t.writes, mode, p, done)
}

func (t *UARTTransport) ReceiveAsync(mode TransferMode, p []byte, done func(n int, err error)) error {
	return receiveAsync(t, mode, p, done)
}

// Close stops pending receives. The UART itself stays configured.
func (t *UARTTransport) Close() error {
	t.closed.Store(true)
	return nil
}
