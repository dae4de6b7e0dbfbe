package hc05

import (
	"context"
	"fmt"
	"sync"
	"time"

	"i4.energy/across/bluetooth/at"
)

// ReceiveBufferSize is the capacity of a ReceiveBuffer.
const ReceiveBufferSize = 20

// ReceiveBuffer receives one armed message read at a time. It belongs to
// the caller, who passes it to ReadMessageAsync and then waits on Done or
// polls Ready. The zero value is ready for use.
type ReceiveBuffer struct {
	mu    sync.Mutex
	data  [ReceiveBufferSize]byte
	end   int
	n     int
	err   error
	ready  bool
	done   chan struct{}
	closed bool // done has been closed
}

// arm resets the buffer for a receive of n bytes.
func (rb *ReceiveBuffer) arm(n int) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.end = n
	rb.n = 0
	rb.err = nil
	rb.ready = false
	// A channel handed out by Done before arming stays the one to close.
	if rb.done == nil || rb.closed {
		rb.done = make(chan struct{})
		rb.closed = false
	}
}

// complete copies at most end bytes of p and publishes the result.
func (rb *ReceiveBuffer) complete(p []byte, err error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.n = copy(rb.data[:rb.end], p)
	rb.err = err
	rb.ready = true
	if rb.done == nil {
		rb.done = make(chan struct{})
	}
	if !rb.closed {
		close(rb.done)
		rb.closed = true
	}
}

// Len returns the length of the pending or last receive.
func (rb *ReceiveBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.end
}

// Ready reports whether the last armed receive has completed.
func (rb *ReceiveBuffer) Ready() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.ready
}

// Done returns a channel that is closed when the armed receive completes.
func (rb *ReceiveBuffer) Done() <-chan struct{} {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.done == nil {
		rb.done = make(chan struct{})
	}
	return rb.done
}

// Bytes returns a copy of the received bytes, or nil before completion.
// After a failed receive it holds whatever arrived before the failure.
func (rb *ReceiveBuffer) Bytes() []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if !rb.ready {
		return nil
	}
	out := make([]byte, rb.n)
	copy(out, rb.data[:rb.n])
	return out
}

// Err returns the outcome of the completed receive.
func (rb *ReceiveBuffer) Err() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.err
}

// Wait blocks until the receive completes or ctx is done.
func (rb *ReceiveBuffer) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-rb.Done():
		return rb.Bytes(), rb.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Module) async(op string) (AsyncTransport, error) {
	a, ok := m.transport.(AsyncTransport)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrAsyncUnsupported)
	}
	return a, nil
}

// SendMessage transmits msg verbatim, as used in data mode once a remote
// device is connected. With ModeBlocking it returns after the transmit.
// With ModeInterrupt or ModeDMA it returns once the transmit is armed; its
// outcome is only logged. A second armed transmit fails with ErrBusy.
func (m *Module) SendMessage(ctx context.Context, mode TransferMode, msg []byte) error {
	const op = "send message"
	if len(msg) == 0 {
		return &PreconditionError{Op: op, Param: "message", Value: msg}
	}
	if !mode.valid() {
		return &PreconditionError{Op: op, Param: "mode", Value: mode}
	}
	if !mode.async() {
		_, err := m.exchange(ctx, op, at.Raw(msg), receive{}, nil)
		return err
	}

	if err := m.usable(op, dirTx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tx, err := m.async(op)
	if err != nil {
		return err
	}
	wire, err := at.Raw(msg).Bytes()
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	if err := m.setArmed(op, dirTx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	err = tx.TransmitAsync(mode, wire, func(err error) {
		m.clearArmed(dirTx)
		if err != nil {
			m.logger.Warn("armed transmit failed", "mode", mode.String(), "bytes", len(wire), "error", err)
			return
		}
		m.logger.Debug("armed transmit done", "mode", mode.String(), "bytes", len(wire), "duration", time.Since(start))
	})
	if err != nil {
		m.clearArmed(dirTx)
		return fmt.Errorf("%s: arm %s: %w: %w", op, mode, ErrTransport, err)
	}
	return nil
}

// ReadMessage reads a message of unknown length into buf. The message ends
// at the first gap longer than timeout, or when buf is full; a timeout of
// zero uses the configured idle timeout. It returns ErrTimeout if nothing
// arrived at all.
func (m *Module) ReadMessage(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	const op = "read message"
	if len(buf) == 0 {
		return 0, &PreconditionError{Op: op, Param: "buffer length", Value: 0}
	}
	if timeout < 0 {
		return 0, &PreconditionError{Op: op, Param: "timeout", Value: timeout}
	}
	if err := m.usable(op, dirRx); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	release, err := m.claim(op, dirRx)
	if err != nil {
		return 0, err
	}
	defer release()

	if timeout == 0 {
		timeout = m.config.idleTimeout
	}
	n, err := readUntilIdle(ctx, m.transport, buf, timeout)
	m.logger.Debug("read message", "bytes", n, "error", err)
	if err != nil {
		return n, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// ReadMessageAsync arms a receive of exactly n bytes into rb. With
// ModeInterrupt or ModeDMA it returns once the receive is armed and rb
// reports the outcome; with ModeBlocking the receive has completed when it
// returns, within the AT timeout.
//
// Only one receive may be armed per Module. Arming another, or starting any
// exchange that reads from the module, fails with ErrBusy until rb is done.
// Arming while an exchange is reading from the module fails with ErrBusy
// as well.
func (m *Module) ReadMessageAsync(ctx context.Context, mode TransferMode, rb *ReceiveBuffer, n int) error {
	const op = "read message async"
	if rb == nil {
		return &PreconditionError{Op: op, Param: "receive buffer", Value: nil}
	}
	if n < 1 || n > ReceiveBufferSize {
		return &PreconditionError{Op: op, Param: "length", Value: n}
	}
	if !mode.valid() {
		return &PreconditionError{Op: op, Param: "mode", Value: mode}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.usable(op, dirRx); err != nil {
		return err
	}

	if !mode.async() {
		m.mu.Lock()
		defer m.mu.Unlock()

		release, err := m.claim(op, dirRx)
		if err != nil {
			return err
		}
		defer release()

		rb.arm(n)
		p := make([]byte, n)
		err = readExact(ctx, m.transport, p, m.config.atTimeout)
		if err != nil {
			err = fmt.Errorf("%s: %w", op, err)
			p = nil
		}
		rb.complete(p, err)
		return err
	}

	rx, err := m.async(op)
	if err != nil {
		return err
	}
	if err := m.setArmed(op, dirRx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rb.arm(n)
	p := make([]byte, n)
	start := time.Now()
	err = rx.ReceiveAsync(mode, p, func(got int, err error) {
		if err == nil && got < n {
			err = fmt.Errorf("short receive: %d of %d bytes", got, n)
		}
		if err != nil {
			err = fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
		}
		m.logger.Debug("armed receive done", "mode", mode.String(), "bytes", got, "duration", time.Since(start), "error", err)

		// Clear first, so a consumer woken by Done can re-arm at once.
		m.clearArmed(dirRx)
		rb.complete(p[:max(got, 0)], err)
	})
	if err != nil {
		err = fmt.Errorf("%s: arm %s: %w: %w", op, mode, ErrTransport, err)
		m.clearArmed(dirRx)
		rb.complete(nil, err)
		return err
	}
	return nil
}

func (m *Module) setArmed(op string, dir direction) error {
	m.state.Lock()
	defer m.state.Unlock()

	switch {
	case m.closed:
		return ErrAlreadyClosed
	case dir == dirTx && m.txArmed, dir == dirRx && m.rxArmed:
		return fmt.Errorf("%s: %w", op, ErrBusy)
	case m.busy&dir != 0:
		return fmt.Errorf("%s: %w: exchange in progress", op, ErrBusy)
	}
	if dir == dirTx {
		m.txArmed = true
	} else {
		m.rxArmed = true
	}
	return nil
}

func (m *Module) clearArmed(dir direction) {
	m.state.Lock()
	defer m.state.Unlock()
	if dir == dirTx {
		m.txArmed = false
	} else {
		m.rxArmed = false
	}
}

// Armed reports whether a receive and a transmit are currently armed.
func (m *Module) Armed() (rx, tx bool) {
	m.state.Lock()
	defer m.state.Unlock()
	return m.rxArmed, m.txArmed
}
