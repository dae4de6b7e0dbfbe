package hc05

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"i4.energy/across/bluetooth/at"
)

// Response buffer sizes per command family. Exact sizes are used where the
// module always answers with the same number of bytes.
const (
	okSize       = len(at.OKResponse)
	uartSize     = 100
	querySize    = 64
	pinSize      = len(at.TagPIN) + 1 + pinLength + 1 + len(at.CRLF) + okSize // +PIN:"1234"\r\nOK\r\n
	roleSize     = len(at.TagRole) + 1 + len(at.CRLF) + okSize                 // +ROLE:1\r\nOK\r\n
	execSize     = 256
	maxNameBytes = 32
)

// Module is a handle to one HC-05/HC-06 module. It owns the Transport from
// New until Close.
//
// AT exchanges are serialised: one command is in flight at a time and
// concurrent callers wait for their turn. On top of that a Module tracks at
// most one armed receive and one armed transmit, see ReadMessageAsync and
// SendMessage. Arming never waits for an exchange that uses the same
// direction; it fails with ErrBusy instead. A Module must not be copied.
type Module struct {
	transport Transport
	config    Config
	logger    *slog.Logger

	// mu serialises exchanges on the transport.
	mu sync.Mutex

	// state guards the flags below; it is never held across I/O.
	state   sync.Mutex
	closed  bool
	rxArmed bool
	txArmed bool
	// busy holds the directions the exchange owning mu uses the line for.
	busy direction
}

// New dials the module with the configured Dialer and returns a handle to
// it. Nothing is sent to the module; use Ping to check it answers.
func New(ctx context.Context, config Config) (*Module, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial module: %w", err)
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	return &Module{
		transport: transport,
		config:    config,
		logger:    config.logger.With("component", "hc05"),
	}, nil
}

// Close releases the transport. Armed transfers complete with the error
// the transport reports once it is closed.
func (m *Module) Close() error {
	if m == nil {
		return &PreconditionError{Op: "close", Param: "module", Value: nil}
	}

	m.state.Lock()
	if m.closed {
		m.state.Unlock()
		return ErrAlreadyClosed
	}
	m.closed = true
	m.state.Unlock()

	if m.transport != nil {
		return m.transport.Close()
	}
	return nil
}

// direction flags what an exchange uses the line for.
type direction uint8

const (
	dirTx direction = 1 << iota
	dirRx
)

// usable reports whether an exchange in the given direction may start.
func (m *Module) usable(op string, dir direction) error {
	if m == nil {
		return &PreconditionError{Op: op, Param: "module", Value: nil}
	}
	m.state.Lock()
	defer m.state.Unlock()

	switch {
	case m.closed:
		return ErrAlreadyClosed
	case m.transport == nil:
		return ErrNotInitialized
	case dir&dirTx != 0 && m.txArmed:
		return fmt.Errorf("%s: %w: transmit armed", op, ErrBusy)
	case dir&dirRx != 0 && m.rxArmed:
		return fmt.Errorf("%s: %w: receive armed", op, ErrBusy)
	}
	return nil
}

// claim marks the line as used in dir by the caller holding mu. It repeats
// the checks of usable, since an armed transfer may have started while the
// caller waited for mu. The returned func releases the line.
func (m *Module) claim(op string, dir direction) (func(), error) {
	m.state.Lock()
	defer m.state.Unlock()

	switch {
	case m.closed:
		return nil, ErrAlreadyClosed
	case dir&dirTx != 0 && m.txArmed:
		return nil, fmt.Errorf("%s: %w: transmit armed", op, ErrBusy)
	case dir&dirRx != 0 && m.rxArmed:
		return nil, fmt.Errorf("%s: %w: receive armed", op, ErrBusy)
	}
	m.busy = dir
	return func() {
		m.state.Lock()
		m.busy = 0
		m.state.Unlock()
	}, nil
}

// receive describes how the answer to a command is collected.
type receive struct {
	size int
	// exact reads exactly size bytes within timeout; otherwise the
	// response ends at the first idle gap.
	exact   bool
	timeout time.Duration
}

func exactly(size int) receive { return receive{size: size, exact: true} }

func upTo(size int) receive { return receive{size: size} }

// exchange transmits cmd and collects the raw response described by rx. An
// rx of size zero transmits only. A non-nil check validates the shape of the
// response before the line is released to the next exchange.
func (m *Module) exchange(ctx context.Context, op string, cmd at.Command, rx receive, check func([]byte) error) ([]byte, error) {
	dir := dirTx
	if rx.size > 0 {
		dir |= dirRx
	}
	if err := m.usable(op, dir); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	release, err := m.claim(op, dir)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	wire, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", op, err)
	}

	start := time.Now()
	if err := m.transport.Transmit(wire, m.config.atTimeout); err != nil {
		if !errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return nil, fmt.Errorf("%s: transmit %s: %w", op, cmd, err)
	}
	if rx.size == 0 {
		m.logger.Debug("transmitted", "op", op, "bytes", len(wire), "duration", time.Since(start))
		return nil, nil
	}

	resp := make([]byte, rx.size)
	if rx.exact {
		timeout := rx.timeout
		if timeout <= 0 {
			timeout = m.config.atTimeout
		}
		err = readExact(ctx, m.transport, resp, timeout)
	} else {
		var n int
		n, err = readUntilIdle(ctx, m.transport, resp, m.config.idleTimeout)
		resp = resp[:n]
	}

	m.logger.Debug("exchange",
		"op", op,
		"command", cmd.String(),
		"response", string(resp),
		"duration", time.Since(start),
		"error", err,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: receive: %w", op, err)
	}
	if check != nil {
		if err := m.inspect(ctx, op, resp, rx, check); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// inspect runs check on resp and turns a failure into the most specific
// error available. Must be called with mu held.
func (m *Module) inspect(ctx context.Context, op string, resp []byte, rx receive, check func([]byte) error) error {
	if err := check(resp); err != nil {
		if rx.exact {
			// The module may have sent more than we asked for, e.g. an
			// ERROR:(x) line. Read it now so the next exchange starts clean.
			resp = append(resp, m.drain(ctx)...)
		}
		if line := moduleError(resp); line != "" {
			return fmt.Errorf("%s: module answered %q: %w", op, line, ErrUnexpectedResponse)
		}
		if !rx.exact && len(resp) == rx.size {
			return fmt.Errorf("%s: %w after %d bytes", op, ErrBufferOverflow, len(resp))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// drain discards whatever the module still sends until the line goes idle.
// Must be called with mu held.
func (m *Module) drain(ctx context.Context) []byte {
	buf := make([]byte, querySize)
	n, _ := readUntilIdle(ctx, m.transport, buf, m.config.idleTimeout)
	if n > 0 {
		m.logger.Debug("drained", "bytes", string(buf[:n]))
	}
	return buf[:n]
}

func (m *Module) expectOK(ctx context.Context, op string, cmd at.Command) error {
	_, err := m.exchange(ctx, op, cmd, exactly(okSize), expectOK)
	return err
}

func tagged(tag string) func([]byte) error {
	return func(resp []byte) error { return expectTagged(resp, tag) }
}

// Ping sends a bare AT and expects OK.
func (m *Module) Ping(ctx context.Context) error {
	return m.expectOK(ctx, "ping", at.Ping())
}

// SerialParameters reads the module UART configuration. Parity is returned
// as the raw digit the module reports, see SerialParameters.
func (m *Module) SerialParameters(ctx context.Context) (SerialParameters, error) {
	const op = "get serial parameters"
	resp, err := m.exchange(ctx, op, at.Query(at.VerbUART), upTo(uartSize), tagged(at.TagUART))
	if err != nil {
		return SerialParameters{}, err
	}
	p, err := parseSerialParameters(resp)
	if err != nil {
		return SerialParameters{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// SetSerialParameters writes the module UART configuration. The module
// applies it to data mode after the next reset.
func (m *Module) SetSerialParameters(ctx context.Context, p SerialParameters) error {
	const op = "set serial parameters"
	if err := p.validate(op); err != nil {
		return err
	}
	return m.expectOK(ctx, op, at.Set(at.VerbUART,
		strconv.FormatUint(uint64(p.BaudRate), 10),
		stopBitDigit(p.StopBit),
		strconv.Itoa(int(p.Parity)),
	))
}

func stopBitDigit(s StopBit) string {
	if s == StopBitTwo {
		return "1"
	}
	return "0"
}

// SetBaudRate changes only the baud rate, keeping stop bit and parity as
// the module currently reports them.
func (m *Module) SetBaudRate(ctx context.Context, baud uint32) error {
	const op = "set baud rate"
	if baud == 0 || baud > maxBaudRate {
		return &PreconditionError{Op: op, Param: "baud rate", Value: baud}
	}
	p, err := m.SerialParameters(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.BaudRate = baud
	return m.SetSerialParameters(ctx, p)
}

// RestoreDefaults resets every setting to its factory value (AT+ORGL).
func (m *Module) RestoreDefaults(ctx context.Context) error {
	return m.expectOK(ctx, "restore defaults", at.Exec(at.VerbRestore))
}

// Reset restarts the module firmware (AT+RESET).
func (m *Module) Reset(ctx context.Context) error {
	return m.expectOK(ctx, "reset", at.Exec(at.VerbReset))
}

func (m *Module) Name(ctx context.Context) (string, error) {
	const op = "get name"
	resp, err := m.exchange(ctx, op, at.Query(at.VerbName), upTo(querySize), tagged(at.TagName))
	if err != nil {
		return "", err
	}
	name, err := parseName(resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return name, nil
}

// SetName sets the name the module advertises. It must be 1 to 32 bytes
// and cannot contain line terminators, quotes or commas.
func (m *Module) SetName(ctx context.Context, name string) error {
	const op = "set name"
	if err := ValidateName(name); err != nil {
		return &PreconditionError{Op: op, Param: "name", Value: name}
	}
	return m.expectOK(ctx, op, at.Set(at.VerbName, name))
}

// ValidateName reports whether name can be stored by SetName.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.New("name is empty")
	case len(name) > maxNameBytes:
		return fmt.Errorf("name is longer than %d bytes", maxNameBytes)
	case strings.ContainsAny(name, "\r\n\","):
		return errors.New("name contains a line terminator, quote or comma")
	}
	return nil
}

// PIN reads the pairing PIN.
func (m *Module) PIN(ctx context.Context) (string, error) {
	const op = "get pin"
	resp, err := m.exchange(ctx, op, at.Query(at.VerbPassword), exactly(pinSize), tagged(at.TagPIN))
	if err != nil {
		return "", err
	}
	pin, err := parsePIN(resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return pin, nil
}

// SetPIN sets the pairing PIN, which must be exactly four decimal digits.
func (m *Module) SetPIN(ctx context.Context, pin string) error {
	const op = "set pin"
	if !validPIN(pin) {
		return &PreconditionError{Op: op, Param: "pin", Value: pin}
	}
	return m.expectOK(ctx, op, at.SetString(at.VerbPassword, pin))
}

func validPIN(pin string) bool {
	if len(pin) != pinLength {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// Address returns the Bluetooth address as six colon separated octets,
// e.g. 98:d3:31:fd:5c:6a.
func (m *Module) Address(ctx context.Context) (string, error) {
	const op = "get address"
	resp, err := m.exchange(ctx, op, at.Query(at.VerbAddress), upTo(querySize), tagged(at.TagAddress))
	if err != nil {
		return "", err
	}
	addr, err := parseAddress(resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return addr, nil
}

// Role reads the master/slave role. The module takes longer to answer this
// query, so it uses the role timeout instead of the AT timeout.
func (m *Module) Role(ctx context.Context) (Role, error) {
	const op = "get role"
	rx := exactly(roleSize)
	rx.timeout = m.roleTimeout()
	resp, err := m.exchange(ctx, op, at.Query(at.VerbRole), rx, tagged(at.TagRole))
	if err != nil {
		return RoleUnknown, err
	}
	role, err := parseRole(resp)
	if err != nil {
		return RoleUnknown, fmt.Errorf("%s: %w", op, err)
	}
	return role, nil
}

func (m *Module) roleTimeout() time.Duration {
	if m == nil {
		return 0
	}
	return m.config.roleTimeout
}

// State queries the connection state. Unrecognised names map to
// StateUnknown.
func (m *Module) State(ctx context.Context) (State, error) {
	const op = "get state"
	resp, err := m.exchange(ctx, op, at.Query(at.VerbState), upTo(querySize), tagged(at.TagState))
	if err != nil {
		return StateUnknown, err
	}
	state, err := parseState(resp)
	if err != nil {
		return StateUnknown, fmt.Errorf("%s: %w", op, err)
	}
	return state, nil
}

// Version returns the firmware version string.
func (m *Module) Version(ctx context.Context) (string, error) {
	const op = "get version"
	resp, err := m.exchange(ctx, op, at.Query(at.VerbVersion), upTo(querySize), tagged(at.TagVersion))
	if err != nil {
		return "", err
	}
	v, err := parseField("version", resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// Exec sends a raw AT command line, without the trailing CRLF, and returns
// the response lines. It fails with ErrUnexpectedResponse unless the last
// line is OK; the lines are returned in either case.
func (m *Module) Exec(ctx context.Context, line string) ([]string, error) {
	const op = "exec"
	if !strings.HasPrefix(strings.ToUpper(line), at.Prefix) || strings.ContainsAny(line, "\r\n") {
		return nil, &PreconditionError{Op: op, Param: "command", Value: line}
	}

	resp, err := m.exchange(ctx, op, at.Raw([]byte(line+at.CRLF)), upTo(execSize), nil)
	if err != nil {
		return nil, err
	}
	lines := at.Lines(resp)
	if len(lines) == 0 || at.Classify(lines[len(lines)-1]) != at.TypeFinal {
		return lines, fmt.Errorf("%s %q: %w", op, line, ErrUnexpectedResponse)
	}
	return lines, nil
}

// ConfigureHost changes the line settings on the host side of the
// transport. It returns errors.ErrUnsupported for transports that cannot be
// reconfigured.
func (m *Module) ConfigureHost(p SerialParameters) error {
	const op = "configure host"
	if err := p.validate(op); err != nil {
		return err
	}
	if err := m.usable(op, dirTx|dirRx); err != nil {
		return err
	}
	hc, ok := m.transport.(HostConfigurer)
	if !ok {
		return fmt.Errorf("%s: %w", op, errors.ErrUnsupported)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := hc.ConfigureHost(p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.logger.Info("host line reconfigured", "parameters", p.String())
	return nil
}
