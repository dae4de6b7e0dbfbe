package hc05

import (
	"io"
	"sync"
	"time"
)

// StreamTransport adapts an io.ReadWriteCloser, such as a pseudo terminal,
// a TCP connection or one end of net.Pipe, to the Transport interface.
//
// A single goroutine reads from the stream and hands bytes over one at a
// time, which is what lets ReceiveByte time out without losing data that
// arrives later.
type StreamTransport struct {
	rw io.ReadWriteCloser

	rx     chan byte
	dead   chan struct{} // closed once the reader goroutine stopped
	closed chan struct{}

	closeOnce sync.Once
	closeErr  error

	mu  sync.Mutex
	err error // why the reader stopped

	writes writeQueue
}

var (
	_ Transport      = (*StreamTransport)(nil)
	_ AsyncTransport = (*StreamTransport)(nil)
)

func NewStreamTransport(rw io.ReadWriteCloser) *StreamTransport {
	t := &StreamTransport{
		rw:     rw,
		rx:     make(chan byte, 256),
		dead:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *StreamTransport) readLoop() {
	defer close(t.dead)

	buf := make([]byte, 256)
	for {
		n, err := t.rw.Read(buf)
		for _, b := range buf[:n] {
			select {
			case t.rx <- b:
			case <-t.closed:
				t.stop(io.ErrClosedPipe)
				return
			}
		}
		if err != nil {
			t.stop(err)
			return
		}
	}
}

func (t *StreamTransport) stop(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err == nil {
		t.err = err
	}
}

func (t *StreamTransport) readErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// take returns the next byte. A nil timer channel waits forever.
func (t *StreamTransport) take(timeout <-chan time.Time) (byte, error) {
	select {
	case b := <-t.rx:
		return b, nil
	case <-t.dead:
		// Bytes read before the reader stopped are still delivered.
		select {
		case b := <-t.rx:
			return b, nil
		default:
			return 0, t.readErr()
		}
	case <-t.closed:
		return 0, io.ErrClosedPipe
	case <-timeout:
		return 0, ErrTimeout
	}
}

func (t *StreamTransport) write(p []byte) error {
	_, err := t.rw.Write(p)
	return err
}

func (t *StreamTransport) Transmit(p []byte, timeout time.Duration) error {
	return t.writes.within(func() error { return t.write(p) }, timeout)
}

func (t *StreamTransport) ReceiveByte(timeout time.Duration) (byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	return t.take(timer.C)
}

func (t *StreamTransport) Receive(p []byte, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for i := range p {
		b, err := t.take(timer.C)
		if err != nil {
			return err
		}
		p[i] = b
	}
	return nil
}

func (t *StreamTransport) nextByte() (byte, error) {
	return t.take(nil)
}

func (t *StreamTransport) fill(p []byte) (int, error) {
	for i := range p {
		b, err := t.take(nil)
		if err != nil {
			return i, err
		}
		p[i] = b
	}
	return len(p), nil
}

func (t *StreamTransport) TransmitAsync(mode TransferMode, p []byte, done func(err error)) error {
	return transmitAsync(t, &t.writes, mode, p, done)
}

func (t *StreamTransport) ReceiveAsync(mode TransferMode, p []byte, done func(n int, err error)) error {
	return receiveAsync(t, mode, p, done)
}

// Close closes the underlying stream. Pending and later receives fail with
// io.ErrClosedPipe.
func (t *StreamTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.closeErr = t.rw.Close()
	})
	return t.closeErr
}
