package hc05

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDialer is returned when a Module is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the module.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a Module
	// that has no transport, for example because the Dialer returned none or
	// the Module was not created via New.
	ErrNotInitialized = errors.New("module not initialized")

	// ErrAlreadyClosed is returned when an operation, including Close, is
	// attempted on a Module that has already been closed.
	ErrAlreadyClosed = errors.New("module already closed")

	// ErrTimeout is returned when the transport did not complete a transfer
	// within its timeout. For variable length responses it means that not a
	// single byte arrived.
	ErrTimeout = errors.New("timed out")

	// ErrTransport wraps any transmit or receive failure reported by the
	// transport other than a timeout.
	ErrTransport = errors.New("transport error")

	// ErrUnexpectedResponse is returned when the module answered but the
	// response does not have the shape expected for the command, typically
	// a missing OK or a module error such as ERROR:(0).
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrMalformedResponse is returned when a response passed the shape check
	// but a field could not be extracted from it. It is wrapped by ParseError.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrBufferOverflow is returned when a response filled the receive buffer
	// without completing.
	ErrBufferOverflow = errors.New("response buffer overflow")

	// ErrBusy is returned when a transfer is armed while another one of the
	// same direction is still outstanding, or when a blocking receive is
	// attempted while an armed receive owns the incoming bytes.
	ErrBusy = errors.New("transfer already in progress")

	// ErrPrecondition is wrapped by PreconditionError. Match it with
	// errors.Is to detect any rejected argument.
	ErrPrecondition = errors.New("precondition violated")

	// ErrAsyncUnsupported is returned when an interrupt or DMA transfer is
	// requested on a transport that only supports blocking transfers.
	ErrAsyncUnsupported = errors.New("transport does not support asynchronous transfers")
)

// PreconditionError reports an argument rejected before anything was sent
// to the module.
type PreconditionError struct {
	Op    string
	Param string
	Value any
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %v", e.Op, e.Param, e.Value)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// ParseError reports a field that could not be extracted from a response.
// Offset is the byte position where extraction gave up.
type ParseError struct {
	Field    string
	Offset   int
	Response []byte
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s at offset %d of %q: %v", e.Field, e.Offset, e.Response, ErrMalformedResponse)
}

func (e *ParseError) Unwrap() error { return ErrMalformedResponse }
