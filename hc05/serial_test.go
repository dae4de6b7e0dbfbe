package hc05

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort implements the parts of serial.Port the transport uses. Reads
// return whatever is queued, or zero bytes as a timed out read does.
type fakePort struct {
	serial.Port

	rx       bytes.Buffer
	tx       bytes.Buffer
	timeouts []time.Duration
	mode     *serial.Mode
	closed   bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.rx.Len() == 0 {
		return 0, nil
	}
	return p.rx.Read(b[:1])
}

func (p *fakePort) Write(b []byte) (int, error) { return p.tx.Write(b) }

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeouts = append(p.timeouts, t)
	return nil
}

func (p *fakePort) SetMode(mode *serial.Mode) error {
	p.mode = mode
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestSerialTransport(t *testing.T) {
	t.Run("ReceiveByte", func(t *testing.T) {
		port := &fakePort{}
		port.rx.WriteString("OK")
		tr := newSerialTransport(port)

		b, err := tr.ReceiveByte(100 * time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, byte('O'), b)
		b, err = tr.ReceiveByte(100 * time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, byte('K'), b)

		_, err = tr.ReceiveByte(100 * time.Millisecond)
		assert.ErrorIs(t, err, ErrTimeout)

		assert.Equal(t, []time.Duration{100 * time.Millisecond}, port.timeouts, "read timeout is only set when it changes")
	})

	t.Run("Receive fills the buffer", func(t *testing.T) {
		port := &fakePort{}
		port.rx.WriteString("OK\r\n")
		tr := newSerialTransport(port)

		p := make([]byte, 4)
		require.NoError(t, tr.Receive(p, time.Second))
		assert.Equal(t, "OK\r\n", string(p))
	})

	t.Run("Receive timeout", func(t *testing.T) {
		port := &fakePort{}
		port.rx.WriteString("OK")
		tr := newSerialTransport(port)

		err := tr.Receive(make([]byte, 4), 10*time.Millisecond)
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("Transmit", func(t *testing.T) {
		port := &fakePort{}
		tr := newSerialTransport(port)

		require.NoError(t, tr.Transmit([]byte("AT\r\n"), time.Second))
		assert.Equal(t, "AT\r\n", port.tx.String())
	})

	t.Run("ConfigureHost maps the line settings", func(t *testing.T) {
		port := &fakePort{}
		tr := newSerialTransport(port)

		require.NoError(t, tr.ConfigureHost(SerialParameters{BaudRate: 115200, StopBit: StopBitTwo, Parity: ParityEven}))
		require.NotNil(t, port.mode)
		assert.Equal(t, 115200, port.mode.BaudRate)
		assert.Equal(t, 8, port.mode.DataBits)
		assert.Equal(t, serial.TwoStopBits, port.mode.StopBits)
		assert.Equal(t, serial.EvenParity, port.mode.Parity)

		err := tr.ConfigureHost(SerialParameters{BaudRate: 9600, Parity: Parity(5)})
		assert.ErrorIs(t, err, ErrPrecondition)
	})

	t.Run("Close", func(t *testing.T) {
		port := &fakePort{}
		require.NoError(t, newSerialTransport(port).Close())
		assert.True(t, port.closed)
	})
}
