//go:build rp2040

package hc05

import (
	"context"
	"errors"
	"fmt"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// UARTXDialer configures one of the RP2040 hardware UARTs and returns a
// transport on it. The HC-05 talks AT at 38400 baud; that is used when
// BaudRate is zero.
type UARTXDialer struct {
	UART     *uartx.UART // uartx.UART0 or uartx.UART1
	BaudRate uint32
	TX, RX   machine.Pin
}

func (d UARTXDialer) Dial(ctx context.Context) (Transport, error) {
	if d.UART == nil {
		return nil, errors.New("hc05: uart is required")
	}
	if ctx == nil {
		return nil, errors.New("hc05: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	baud := d.BaudRate
	if baud == 0 {
		baud = 38400
	}
	if err := d.UART.Configure(uartx.UARTConfig{BaudRate: baud, TX: d.TX, RX: d.RX}); err != nil {
		return nil, fmt.Errorf("configure uart: %w", err)
	}
	return &uartxTransport{UARTTransport: NewUARTTransport(d.UART), hw: d.UART}, nil
}

// uartxTransport adds host side reconfiguration to a UARTTransport.
type uartxTransport struct {
	*UARTTransport
	hw *uartx.UART
}

var _ HostConfigurer = (*uartxTransport)(nil)

func (t *uartxTransport) ConfigureHost(p SerialParameters) error {
	var stop uint8
	switch p.StopBit {
	case StopBitOne:
		stop = 1
	case StopBitTwo:
		stop = 2
	default:
		return &PreconditionError{Op: "configure host", Param: "stop bit", Value: p.StopBit}
	}
	var parity uartx.UARTParity
	switch p.Parity {
	case ParityNone:
		parity = uartx.ParityNone
	case ParityOdd:
		parity = uartx.ParityOdd
	case ParityEven:
		parity = uartx.ParityEven
	default:
		return &PreconditionError{Op: "configure host", Param: "parity", Value: p.Parity}
	}

	t.hw.SetBaudRate(p.BaudRate)
	return t.hw.SetFormat(8, stop, parity)
}
