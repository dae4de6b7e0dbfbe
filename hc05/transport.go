package hc05

import (
	"context"
	"time"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=hc05

// Transport represents an established byte channel to an HC-05 module.
//
// A Transport is assumed to be already connected and configured. All of its
// methods block the caller until the transfer completes or the timeout
// elapses; there is no other cancellation. Typical implementations include
// serial ports, TinyGo UARTs, or in-memory fakes used for testing.
type Transport interface {
	// Transmit sends p in full. A transmit that returned ErrTimeout may
	// still be writing; the bytes of later transmits must not be
	// interleaved with it.
	Transmit(p []byte, timeout time.Duration) error

	// Receive fills p completely. It returns ErrTimeout if p could not be
	// filled within timeout, measured from the start of the call.
	Receive(p []byte, timeout time.Duration) error

	// ReceiveByte returns the next byte, or ErrTimeout if none arrived
	// within timeout.
	ReceiveByte(timeout time.Duration) (byte, error)

	Close() error
}

// AsyncTransport is implemented by transports that can run a transfer in
// the background, either interrupt driven or DMA driven. Both methods return
// once the transfer is armed; their error only reports whether arming
// succeeded. The outcome of the transfer itself is delivered to done, which
// may run on another goroutine.
//
// Implementations may use a different mechanism per mode, but callers see
// the same contract for ModeInterrupt and ModeDMA.
type AsyncTransport interface {
	TransmitAsync(mode TransferMode, p []byte, done func(err error)) error
	ReceiveAsync(mode TransferMode, p []byte, done func(n int, err error)) error
}

// HostConfigurer is implemented by transports whose local line settings can
// be changed, so the host can follow a module moved to new UART parameters.
type HostConfigurer interface {
	ConfigureHost(p SerialParameters) error
}

// Dialer opens a Transport to an HC-05 module.
//
// Dialer abstracts how the connection is created (for example, via a serial
// port, a pseudo terminal, or a test double) and is only used during module
// construction. Once a Transport is obtained, the Dialer is no longer needed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport.
	// It may perform blocking operations and should respect cancellation
	// and deadlines provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// DialerFunc adapts an ordinary function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Transport, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Transport, error) {
	return f(ctx)
}

// Static returns a Dialer that hands out t as is. It lets an already open
// Transport be passed to NewConfigBuilder().WithDialer.
func Static(t Transport) Dialer {
	return DialerFunc(func(ctx context.Context) (Transport, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return t, nil
	})
}
