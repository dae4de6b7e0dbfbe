package hc05

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// readUntilIdle collects a variable length response into buf. It reads one
// byte at a time and stops the first time no byte arrives within idle, so a
// response of any length completes as long as the module keeps the line
// busy. It also stops when buf is full.
//
// It returns the number of bytes read. ErrTimeout is only returned if not a
// single byte arrived.
func readUntilIdle(ctx context.Context, t Transport, buf []byte, idle time.Duration) (int, error) {
	n := 0
	for n < len(buf) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		b, err := t.ReceiveByte(idle)
		if errors.Is(err, ErrTimeout) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("%w: %w", ErrTransport, err)
		}
		buf[n] = b
		n++
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

// readExact fills buf within timeout, measured from the start of the read.
func readExact(ctx context.Context, t Transport, buf []byte, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := t.Receive(buf, timeout)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}
