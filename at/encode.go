package at

import (
	"errors"
	"strings"
)

var (
	// ErrBufferTooSmall is returned by Encode when the destination cannot hold
	// the whole command. Nothing past len(dst) is ever written.
	ErrBufferTooSmall = errors.New("at: buffer too small for command")

	// ErrInvalidCommand is returned for commands that cannot be put on the
	// wire unambiguously (missing verb, embedded line terminators, ...).
	ErrInvalidCommand = errors.New("at: invalid command")
)

// Form selects how a Command is framed.
type Form uint8

const (
	FormPing      Form = iota // AT
	FormExec                  // AT+VERB
	FormQuery                 // AT+VERB?
	FormSet                   // AT+VERB=p1,p2
	FormSetString             // AT+VERB="s"
	FormRaw                   // payload verbatim
)

// Command is a single request for the module. Build it with Ping, Exec,
// Query, Set, SetString or Raw rather than by hand.
type Command struct {
	Form    Form
	Verb    string
	Params  []string
	Payload []byte
}

// Ping is the bare AT attention command.
func Ping() Command { return Command{Form: FormPing} }

// Exec runs an action command such as AT+RESET.
func Exec(verb string) Command { return Command{Form: FormExec, Verb: verb} }

// Query reads a setting, e.g. AT+NAME?.
func Query(verb string) Command { return Command{Form: FormQuery, Verb: verb} }

// Set writes a setting with comma separated parameters, e.g. AT+UART=9600,0,0.
func Set(verb string, params ...string) Command {
	return Command{Form: FormSet, Verb: verb, Params: params}
}

// SetString writes a setting whose single value is sent double quoted,
// e.g. AT+PSWD="1234".
func SetString(verb, value string) Command {
	return Command{Form: FormSetString, Verb: verb, Params: []string{value}}
}

// Raw wraps a data-mode payload. It is transmitted exactly as given.
func Raw(payload []byte) Command { return Command{Form: FormRaw, Payload: payload} }

func (c Command) validate() error {
	switch c.Form {
	case FormPing:
		return nil
	case FormRaw:
		if len(c.Payload) == 0 {
			return ErrInvalidCommand
		}
		return nil
	case FormExec, FormQuery, FormSet, FormSetString:
	default:
		return ErrInvalidCommand
	}

	if c.Verb == "" || strings.ContainsAny(c.Verb, "\r\n=?,\" ") {
		return ErrInvalidCommand
	}

	switch c.Form {
	case FormSet:
		if len(c.Params) == 0 {
			return ErrInvalidCommand
		}
		for _, p := range c.Params {
			if strings.ContainsAny(p, "\r\n,") {
				return ErrInvalidCommand
			}
		}
	case FormSetString:
		if len(c.Params) != 1 || strings.ContainsAny(c.Params[0], "\r\n\"") {
			return ErrInvalidCommand
		}
	}
	return nil
}

// Len returns the number of bytes Encode writes for c.
func (c Command) Len() int {
	switch c.Form {
	case FormPing:
		return len(Prefix) + len(CRLF)
	case FormRaw:
		return len(c.Payload)
	}

	n := len(Prefix) + 1 + len(c.Verb) + len(CRLF)
	switch c.Form {
	case FormQuery:
		n++
	case FormSet:
		n++ // '='
		for i, p := range c.Params {
			if i > 0 {
				n++
			}
			n += len(p)
		}
	case FormSetString:
		n += 3 // '=' and the quotes
		if len(c.Params) > 0 {
			n += len(c.Params[0])
		}
	}
	return n
}

// Encode writes the wire form of c into dst and returns the number of
// bytes written.
func Encode(dst []byte, c Command) (int, error) {
	if err := c.validate(); err != nil {
		return 0, err
	}
	if c.Len() > len(dst) {
		return 0, ErrBufferTooSmall
	}

	if c.Form == FormRaw {
		return copy(dst, c.Payload), nil
	}

	n := copy(dst, Prefix)
	if c.Form != FormPing {
		dst[n] = '+'
		n++
		n += copy(dst[n:], c.Verb)
	}

	switch c.Form {
	case FormQuery:
		dst[n] = '?'
		n++
	case FormSet:
		dst[n] = '='
		n++
		for i, p := range c.Params {
			if i > 0 {
				dst[n] = ','
				n++
			}
			n += copy(dst[n:], p)
		}
	case FormSetString:
		dst[n] = '='
		dst[n+1] = '"'
		n += 2
		n += copy(dst[n:], c.Params[0])
		dst[n] = '"'
		n++
	}

	n += copy(dst[n:], CRLF)
	return n, nil
}

// Bytes encodes c into a freshly allocated, exactly sized buffer.
func (c Command) Bytes() ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, c.Len())
	n, err := Encode(buf, c)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// String renders c for logs. Invalid commands render as their verb.
func (c Command) String() string {
	b, err := c.Bytes()
	if err != nil {
		return c.Verb
	}
	return strings.TrimSuffix(string(b), CRLF)
}
