package hc05_test

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/bluetooth/hc05"
)

// fakeUART is a drivers.UART whose receive side is fed by the test.
type fakeUART struct {
	mu sync.Mutex
	rx bytes.Buffer
	tx bytes.Buffer
}

func (u *fakeUART) feed(s string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rx.WriteString(s)
}

func (u *fakeUART) sent() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tx.String()
}

func (u *fakeUART) Read(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rx.Read(p)
}

func (u *fakeUART) Write(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tx.Write(p)
}

func (u *fakeUART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rx.Len()
}

func TestUARTTransport(t *testing.T) {
	t.Run("Transmit writes everything", func(t *testing.T) {
		u := &fakeUART{}
		tr := hc05.NewUARTTransport(u)

		require.NoError(t, tr.Transmit([]byte("AT+NAME?\r\n"), time.Second))
		assert.Equal(t, "AT+NAME?\r\n", u.sent())
	})

	t.Run("Receive drains what is buffered", func(t *testing.T) {
		u := &fakeUART{}
		u.feed("+ROLE:0\r\nOK\r\n")
		tr := hc05.NewUARTTransport(u)

		p := make([]byte, 13)
		require.NoError(t, tr.Receive(p, time.Second))
		assert.Equal(t, "+ROLE:0\r\nOK\r\n", string(p))
	})

	t.Run("Receive waits for late bytes", func(t *testing.T) {
		u := &fakeUART{}
		u.feed("O")
		tr := hc05.NewUARTTransport(u)

		go func() {
			time.Sleep(5 * time.Millisecond)
			u.feed("K\r\n")
		}()

		p := make([]byte, 4)
		require.NoError(t, tr.Receive(p, time.Second))
		assert.Equal(t, "OK\r\n", string(p))
	})

	t.Run("ReceiveByte timeout", func(t *testing.T) {
		tr := hc05.NewUARTTransport(&fakeUART{})

		start := time.Now()
		_, err := tr.ReceiveByte(5 * time.Millisecond)
		assert.ErrorIs(t, err, hc05.ErrTimeout)
		assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	})

	t.Run("Zero poll yields instead of sleeping", func(t *testing.T) {
		u := &fakeUART{}
		u.feed("x")
		tr := hc05.NewUARTTransport(u)
		tr.Poll = 0

		b, err := tr.ReceiveByte(time.Second)
		require.NoError(t, err)
		assert.Equal(t, byte('x'), b)
	})

	t.Run("DMA receive in bursts", func(t *testing.T) {
		u := &fakeUART{}
		tr := hc05.NewUARTTransport(u)
		tr.Burst = 4

		p := make([]byte, 10)
		done := make(chan int, 1)
		require.NoError(t, tr.ReceiveAsync(hc05.ModeDMA, p, func(n int, err error) {
			assert.NoError(t, err)
			done <- n
		}))

		u.feed("0123")
		u.feed("456789")

		select {
		case n := <-done:
			assert.Equal(t, 10, n)
			assert.Equal(t, "0123456789", string(p))
		case <-time.After(time.Second):
			t.Fatal("DMA receive did not complete")
		}
	})

	t.Run("Interrupt transmit", func(t *testing.T) {
		u := &fakeUART{}
		tr := hc05.NewUARTTransport(u)

		done := make(chan error, 1)
		require.NoError(t, tr.TransmitAsync(hc05.ModeInterrupt, []byte("data"), func(err error) {
			done <- err
		}))
		require.NoError(t, <-done)
		assert.Equal(t, "data", u.sent())
	})

	t.Run("Close stops armed receives", func(t *testing.T) {
		tr := hc05.NewUARTTransport(&fakeUART{})

		done := make(chan error, 1)
		require.NoError(t, tr.ReceiveAsync(hc05.ModeInterrupt, make([]byte, 1), func(_ int, err error) {
			done <- err
		}))
		require.NoError(t, tr.Close())

		select {
		case err := <-done:
			assert.ErrorIs(t, err, io.ErrClosedPipe)
		case <-time.After(time.Second):
			t.Fatal("armed receive did not stop")
		}
		assert.ErrorIs(t, tr.Transmit([]byte("x"), time.Second), io.ErrClosedPipe)
	})
}
