// Package sim emulates an HC-05 Bluetooth module in AT command mode. It
// answers on any io.ReadWriter, which makes it usable against net.Pipe in
// tests and behind a pseudo terminal for manual experiments.
package sim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"i4.energy/across/bluetooth/at"
)

var (
	// ErrAlreadyServing is returned by Serve while another Serve runs.
	ErrAlreadyServing = errors.New("device already serving")
)

// Error codes reported as ERROR:(<code>).
const (
	CodeCommand     = "0" // unknown command or bad parameters
	CodeNameTooLong = "3"
	CodeNameEmpty   = "4"
)

const maxNameLength = 32

// Settings is the configuration the emulated module keeps.
type Settings struct {
	Name     string
	PIN      string
	Address  string // NAP:UAP:LAP, e.g. 98d3:31:fd5c6a
	Role     int
	BaudRate uint32
	StopBit  int
	Parity   int
	State    string
	Version  string
}

// DefaultSettings returns the factory configuration of an HC-05.
func DefaultSettings() Settings {
	return Settings{
		Name:     "H-C-2010-06-01",
		PIN:      "1234",
		Address:  "98d3:31:fd5c6a",
		Role:     0,
		BaudRate: 9600,
		StopBit:  0,
		Parity:   0,
		State:    "INITIALIZED",
		Version:  "3.0-20170601",
	}
}

// CommandHook may answer a command line before the built-in handler. It
// returns the complete reply and true, or false to fall through.
type CommandHook func(line string) (string, bool)

// Metrics counts the traffic a Device has seen.
type Metrics struct {
	RxBytes         int
	TxBytes         int
	Commands        int
	Errors          int
	LastCommandTime time.Time
}

// Device is an emulated module. The zero value is not usable; create one
// with New.
type Device struct {
	mu       sync.Mutex
	settings Settings
	defaults Settings
	metrics  Metrics
	data     [][]byte
	serving  bool

	byteDelay time.Duration
	loopback  bool
	hook      CommandHook
	logger    *slog.Logger
}

type Option func(*Device)

// WithSettings starts the device with s instead of DefaultSettings. AT+ORGL
// still restores DefaultSettings, keeping address and version.
func WithSettings(s Settings) Option {
	return func(d *Device) { d.settings = s }
}

// WithByteDelay pauses between two bytes of every reply, as a slow link
// would.
func WithByteDelay(delay time.Duration) Option {
	return func(d *Device) { d.byteDelay = delay }
}

// WithLoopback echoes lines that are not AT commands back to the host, as
// if a connected remote device returned every message.
func WithLoopback() Option {
	return func(d *Device) { d.loopback = true }
}

func WithCommandHook(h CommandHook) Option {
	return func(d *Device) { d.hook = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.logger = l }
}

func New(opts ...Option) *Device {
	d := &Device{
		settings: DefaultSettings(),
		defaults: DefaultSettings(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "sim")
	return d
}

// Settings returns a copy of the current configuration.
func (d *Device) Settings() Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// SetState changes the reported connection state, e.g. to CONNECTED.
func (d *Device) SetState(state string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings.State = state
}

func (d *Device) Metrics() Metrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics
}

// Received returns the non-command lines the host sent, in order.
func (d *Device) Received() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.data))
	copy(out, d.data)
	return out
}

// Serve answers commands read from rw until rw reports EOF, which returns
// nil, or ctx is cancelled.
func (d *Device) Serve(ctx context.Context, rw io.ReadWriter) error {
	d.mu.Lock()
	if d.serving {
		d.mu.Unlock()
		return ErrAlreadyServing
	}
	d.serving = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.serving = false
		d.mu.Unlock()
	}()

	counter := &countingReader{r: rw, d: d}
	scanner := bufio.NewScanner(counter)
	scanner.Split(at.Splitter)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read command: %w", err)
					}
				default:
				}
				return nil
			}
			if line == "" {
				continue
			}
			reply := d.Handle(line)
			if reply == "" {
				continue
			}
			if err := d.reply(ctx, rw, reply); err != nil {
				return err
			}
		}
	}
}

type countingReader struct {
	r io.Reader
	d *Device
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.d.mu.Lock()
	c.d.metrics.RxBytes += n
	c.d.mu.Unlock()
	return n, err
}

func (d *Device) reply(ctx context.Context, w io.Writer, reply string) error {
	if d.byteDelay <= 0 {
		n, err := io.WriteString(w, reply)
		d.countTx(n)
		if err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
		return nil
	}

	for i := 0; i < len(reply); i++ {
		if i > 0 {
			select {
			case <-time.After(d.byteDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		n, err := w.Write([]byte{reply[i]})
		d.countTx(n)
		if err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
	}
	return nil
}

func (d *Device) countTx(n int) {
	d.mu.Lock()
	d.metrics.TxBytes += n
	d.mu.Unlock()
}

// Handle processes one line without its terminator and returns the
// complete reply. Lines that are not AT commands are treated as data: they
// are recorded and, with loopback enabled, echoed.
func (d *Device) Handle(line string) string {
	if !isCommand(line) {
		d.mu.Lock()
		d.data = append(d.data, []byte(line))
		loopback := d.loopback
		d.mu.Unlock()
		d.logger.Debug("data", "line", line)
		if loopback {
			return line + at.CRLF
		}
		return ""
	}

	d.mu.Lock()
	d.metrics.Commands++
	d.metrics.LastCommandTime = time.Now()
	d.mu.Unlock()

	if d.hook != nil {
		if reply, ok := d.hook(line); ok {
			return reply
		}
	}

	reply := d.execute(line)
	if strings.HasPrefix(reply, at.ErrorCode) {
		d.mu.Lock()
		d.metrics.Errors++
		d.mu.Unlock()
	}
	d.logger.Debug("command", "line", line, "reply", strings.TrimSpace(reply))
	return reply
}

func isCommand(line string) bool {
	return len(line) >= len(at.Prefix) && strings.EqualFold(line[:len(at.Prefix)], at.Prefix)
}

func errorReply(code string) string {
	return at.ErrorCode + code + ")" + at.CRLF
}

func okReply(data string) string {
	if data == "" {
		return at.OKResponse
	}
	return data + at.CRLF + at.OKResponse
}

func (d *Device) execute(line string) string {
	rest := line[len(at.Prefix):]
	if rest == "" {
		return okReply("")
	}
	if rest[0] != '+' {
		return errorReply(CodeCommand)
	}
	rest = rest[1:]

	verb, arg, assign := strings.Cut(rest, "=")
	query := !assign && strings.HasSuffix(verb, "?")
	verb = strings.ToUpper(strings.TrimSuffix(verb, "?"))

	d.mu.Lock()
	defer d.mu.Unlock()
	s := &d.settings

	switch {
	case verb == at.VerbUART && query:
		return okReply(fmt.Sprintf("%s%d,%d,%d", at.TagUART, s.BaudRate, s.StopBit, s.Parity))
	case verb == at.VerbUART && assign:
		return d.setUART(arg)
	case verb == at.VerbName && query:
		return okReply(at.TagName + s.Name)
	case verb == at.VerbName && assign:
		switch {
		case arg == "":
			return errorReply(CodeNameEmpty)
		case len(arg) > maxNameLength:
			return errorReply(CodeNameTooLong)
		}
		s.Name = arg
		return okReply("")
	case verb == at.VerbPassword && query:
		return okReply(fmt.Sprintf("%s%q", at.TagPIN, s.PIN))
	case verb == at.VerbPassword && assign:
		pin := strings.Trim(arg, `"`)
		if pin == "" || len(pin) > 16 {
			return errorReply(CodeCommand)
		}
		s.PIN = pin
		return okReply("")
	case verb == at.VerbAddress && query:
		return okReply(at.TagAddress + s.Address)
	case verb == at.VerbRole && query:
		return okReply(fmt.Sprintf("%s%d", at.TagRole, s.Role))
	case verb == at.VerbRole && assign:
		role, err := strconv.Atoi(arg)
		if err != nil || role < 0 || role > 2 {
			return errorReply(CodeCommand)
		}
		s.Role = role
		return okReply("")
	case verb == at.VerbState && query:
		return okReply(at.TagState + s.State)
	case verb == at.VerbVersion && query:
		return okReply(at.TagVersion + s.Version)
	case verb == at.VerbReset && !query && !assign:
		s.State = "INITIALIZED"
		return okReply("")
	case verb == at.VerbRestore && !query && !assign:
		address, version := s.Address, s.Version
		*s = d.defaults
		s.Address, s.Version = address, version
		return okReply("")
	}
	return errorReply(CodeCommand)
}

// setUART must be called with mu held.
func (d *Device) setUART(arg string) string {
	fields := strings.Split(arg, ",")
	if len(fields) != 3 {
		return errorReply(CodeCommand)
	}
	baud, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil || baud == 0 {
		return errorReply(CodeCommand)
	}
	stop, err := strconv.Atoi(fields[1])
	if err != nil || stop < 0 || stop > 1 {
		return errorReply(CodeCommand)
	}
	parity, err := strconv.Atoi(fields[2])
	if err != nil || parity < 0 || parity > 2 {
		return errorReply(CodeCommand)
	}
	d.settings.BaudRate = uint32(baud)
	d.settings.StopBit = stop
	d.settings.Parity = parity
	return okReply("")
}
