package hc05

import (
	"fmt"
	"sync"
	"time"
)

// streamIO is the blocking, timeout-free half of a transport that the
// background transfers are built on.
type streamIO interface {
	// nextByte waits for one byte, the way an RX interrupt delivers them.
	nextByte() (byte, error)
	// fill waits until p is full, the way a DMA channel completes.
	fill(p []byte) (int, error)
	write(p []byte) error
}

// receiveAsync arms a background receive into p. Interrupt mode moves one
// byte per wake-up, DMA mode hands the whole buffer to fill.
func receiveAsync(s streamIO, mode TransferMode, p []byte, done func(n int, err error)) error {
	if !mode.async() {
		return fmt.Errorf("%w: %s", ErrAsyncUnsupported, mode)
	}
	go func() {
		var n int
		var err error
		switch mode {
		case ModeInterrupt:
			for n < len(p) {
				var b byte
				if b, err = s.nextByte(); err != nil {
					break
				}
				p[n] = b
				n++
			}
		case ModeDMA:
			n, err = s.fill(p)
		}
		done(n, err)
	}()
	return nil
}

// transmitAsync arms a background transmit of p. The caller must not touch
// p until done runs.
func transmitAsync(s streamIO, q *writeQueue, mode TransferMode, p []byte, done func(err error)) error {
	if !mode.async() {
		return fmt.Errorf("%w: %s", ErrAsyncUnsupported, mode)
	}
	errc := q.start(func() error {
		if mode == ModeDMA {
			return s.write(p)
		}
		for i := range p {
			if err := s.write(p[i : i+1]); err != nil {
				return err
			}
		}
		return nil
	})
	go func() {
		done(<-errc)
	}()
	return nil
}

// writeQueue runs the writes of one transport strictly one after another.
// A write cannot be cancelled, so one abandoned after a timeout still has
// to finish before the next one touches the line. The zero value is ready
// for use.
type writeQueue struct {
	mu   sync.Mutex
	last chan struct{} // closed when the most recent write returned
}

// start queues write behind the previous one and returns its outcome.
func (q *writeQueue) start(write func() error) <-chan error {
	q.mu.Lock()
	prev := q.last
	cur := make(chan struct{})
	q.last = cur
	q.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		defer close(cur)
		if prev != nil {
			<-prev
		}
		errc <- write()
	}()
	return errc
}

// within queues write and gives up waiting after timeout, which includes
// the time spent behind earlier writes. The write itself keeps running and
// later writes wait for it.
func (q *writeQueue) within(write func() error, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	errc := q.start(write)
	select {
	case err := <-errc:
		return err
	case <-timer.C:
		return ErrTimeout
	}
}
