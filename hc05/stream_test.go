package hc05_test

import (
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/bluetooth/hc05"
)

func TestStreamTransport(t *testing.T) {
	t.Run("Transmit and receive", func(t *testing.T) {
		host, device := net.Pipe()
		tr := hc05.NewStreamTransport(host)
		defer tr.Close()

		go func() {
			buf := make([]byte, 4)
			if _, err := io.ReadFull(device, buf); err == nil {
				device.Write([]byte("OK\r\n"))
			}
		}()

		require.NoError(t, tr.Transmit([]byte("AT\r\n"), time.Second))
		p := make([]byte, 4)
		require.NoError(t, tr.Receive(p, time.Second))
		assert.Equal(t, "OK\r\n", string(p))
	})

	t.Run("ReceiveByte times out without losing later bytes", func(t *testing.T) {
		host, device := net.Pipe()
		tr := hc05.NewStreamTransport(host)
		defer tr.Close()

		_, err := tr.ReceiveByte(10 * time.Millisecond)
		assert.ErrorIs(t, err, hc05.ErrTimeout)

		go device.Write([]byte("x"))
		b, err := tr.ReceiveByte(time.Second)
		require.NoError(t, err)
		assert.Equal(t, byte('x'), b)
	})

	t.Run("Receive timeout covers the whole buffer", func(t *testing.T) {
		host, device := net.Pipe()
		tr := hc05.NewStreamTransport(host)
		defer tr.Close()

		go device.Write([]byte("OK"))
		err := tr.Receive(make([]byte, 4), 20*time.Millisecond)
		assert.ErrorIs(t, err, hc05.ErrTimeout)
	})

	t.Run("Transmit timeout", func(t *testing.T) {
		// Nobody reads the other end of the pipe, so the write blocks.
		host, _ := net.Pipe()
		tr := hc05.NewStreamTransport(host)
		defer tr.Close()

		err := tr.Transmit([]byte("AT\r\n"), 10*time.Millisecond)
		assert.ErrorIs(t, err, hc05.ErrTimeout)
	})

	t.Run("Transmit after a timeout waits for the stale write", func(t *testing.T) {
		stream := newGatedStream()
		tr := hc05.NewStreamTransport(stream)
		defer tr.Close()

		err := tr.Transmit([]byte("first"), 10*time.Millisecond)
		assert.ErrorIs(t, err, hc05.ErrTimeout)

		// Still queued behind the first write when its own timeout fires.
		err = tr.Transmit([]byte("second"), 10*time.Millisecond)
		assert.ErrorIs(t, err, hc05.ErrTimeout)

		result := make(chan error, 1)
		go func() {
			result <- tr.Transmit([]byte("third"), time.Second)
		}()

		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, stream.written(), "no write may overtake the blocked one")

		close(stream.gate)
		require.NoError(t, <-result)
		assert.Equal(t, "firstsecondthird", stream.written())
	})

	t.Run("Peer close ends receives", func(t *testing.T) {
		host, device := net.Pipe()
		tr := hc05.NewStreamTransport(host)
		defer tr.Close()

		go func() {
			device.Write([]byte("A"))
			device.Close()
		}()

		b, err := tr.ReceiveByte(time.Second)
		require.NoError(t, err)
		assert.Equal(t, byte('A'), b)

		_, err = tr.ReceiveByte(time.Second)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("Close unblocks armed receives", func(t *testing.T) {
		host, _ := net.Pipe()
		tr := hc05.NewStreamTransport(host)

		done := make(chan error, 1)
		require.NoError(t, tr.ReceiveAsync(hc05.ModeInterrupt, make([]byte, 4), func(_ int, err error) {
			done <- err
		}))

		require.NoError(t, tr.Close())
		select {
		case err := <-done:
			assert.Error(t, err)
		case <-time.After(time.Second):
			t.Fatal("armed receive did not complete after Close")
		}
	})

	t.Run("Background transfers", func(t *testing.T) {
		for _, mode := range []hc05.TransferMode{hc05.ModeInterrupt, hc05.ModeDMA} {
			t.Run(mode.String(), func(t *testing.T) {
				host, device := net.Pipe()
				tr := hc05.NewStreamTransport(host)
				defer tr.Close()

				rx := make(chan string, 1)
				p := make([]byte, 5)
				require.NoError(t, tr.ReceiveAsync(mode, p, func(n int, err error) {
					assert.NoError(t, err)
					rx <- string(p[:n])
				}))

				tx := make(chan error, 1)
				require.NoError(t, tr.TransmitAsync(mode, []byte("ping"), func(err error) {
					tx <- err
				}))

				buf := make([]byte, 4)
				_, err := io.ReadFull(device, buf)
				require.NoError(t, err)
				assert.Equal(t, "ping", string(buf))
				assert.NoError(t, <-tx)

				_, err = device.Write([]byte("hello"))
				require.NoError(t, err)
				select {
				case got := <-rx:
					assert.Equal(t, "hello", got)
				case <-time.After(time.Second):
					t.Fatal("armed receive did not complete")
				}
			})
		}
	})

	t.Run("Blocking mode is not a background transfer", func(t *testing.T) {
		host, _ := net.Pipe()
		tr := hc05.NewStreamTransport(host)
		defer tr.Close()

		err := tr.ReceiveAsync(hc05.ModeBlocking, make([]byte, 1), func(int, error) {})
		assert.ErrorIs(t, err, hc05.ErrAsyncUnsupported)
	})
}

// gatedStream holds its first write until gate is closed and records
// everything written. Reads block until Close.
type gatedStream struct {
	gate   chan struct{}
	closed chan struct{}

	mu    sync.Mutex
	first bool
	out   strings.Builder
}

func newGatedStream() *gatedStream {
	return &gatedStream{gate: make(chan struct{}), closed: make(chan struct{}), first: true}
}

func (s *gatedStream) Read([]byte) (int, error) {
	<-s.closed
	return 0, io.EOF
}

func (s *gatedStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	first := s.first
	s.first = false
	s.mu.Unlock()
	if first {
		<-s.gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Write(p)
	return len(p), nil
}

func (s *gatedStream) Close() error {
	close(s.closed)
	return nil
}

func (s *gatedStream) written() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.String()
}
