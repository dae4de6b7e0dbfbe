package hc05

import (
	"bytes"
	"fmt"
	"strconv"

	"i4.energy/across/bluetooth/at"
)

// Response validation and field extraction.
//
// Validators only look at the overall shape of a response (prefix and
// trailing OK). Extractors then pull single fields out, either from a fixed
// byte offset or by scanning for a delimiter, depending on the field. Every
// extractor checks bounds before indexing and reports a *ParseError instead
// of reading past the response.

// Offsets of the first value byte after each fixed-width tag. The PIN is
// quoted, so its value starts one byte later.
const (
	baudOffset = len(at.TagUART)
	pinOffset  = len(at.TagPIN) + 1 // skip the opening quote
	roleOffset = len(at.TagRole)
	addrOffset = len(at.TagAddress)
	pinLength  = 4
)

func expectOK(resp []byte) error {
	if len(resp) < len(at.OKResponse) || !bytes.Equal(resp[len(resp)-len(at.OKResponse):], []byte(at.OKResponse)) {
		return fmt.Errorf("%w: %q does not end in OK", ErrUnexpectedResponse, resp)
	}
	return nil
}

func expectTagged(resp []byte, tag string) error {
	if !bytes.HasPrefix(resp, []byte(tag)) {
		return fmt.Errorf("%w: %q does not start with %q", ErrUnexpectedResponse, resp, tag)
	}
	return expectOK(resp)
}

func parseErr(field string, offset int, resp []byte) error {
	return &ParseError{Field: field, Offset: offset, Response: bytes.Clone(resp)}
}

// parseBaudRate reads the digits from offset 6 up to the first comma.
func parseBaudRate(resp []byte) (uint32, error) {
	if len(resp) <= baudOffset {
		return 0, parseErr("baud rate", baudOffset, resp)
	}
	end := bytes.IndexByte(resp[baudOffset:], ',')
	if end <= 0 {
		return 0, parseErr("baud rate", baudOffset, resp)
	}
	v, err := strconv.ParseUint(string(resp[baudOffset:baudOffset+end]), 10, 32)
	if err != nil || v == 0 {
		return 0, parseErr("baud rate", baudOffset, resp)
	}
	return uint32(v), nil
}

// parseStopBit decodes the digit right after the first comma.
func parseStopBit(resp []byte) (StopBit, error) {
	i := bytes.IndexByte(resp, ',')
	if i < 0 || i+1 >= len(resp) {
		return StopBitError, parseErr("stop bit", i+1, resp)
	}
	switch resp[i+1] {
	case '0':
		return StopBitOne, nil
	case '1':
		return StopBitTwo, nil
	default:
		return StopBitError, nil
	}
}

// parseParity returns the digit right after the second comma as is. Unlike
// the stop bit it is not mapped onto the named values.
func parseParity(resp []byte) (Parity, error) {
	first := bytes.IndexByte(resp, ',')
	if first < 0 {
		return 0, parseErr("parity", 0, resp)
	}
	second := bytes.IndexByte(resp[first+1:], ',')
	if second < 0 {
		return 0, parseErr("parity", first+1, resp)
	}
	pos := first + 1 + second + 1
	if pos >= len(resp) || resp[pos] < '0' || resp[pos] > '9' {
		return 0, parseErr("parity", pos, resp)
	}
	return Parity(resp[pos] - '0'), nil
}

func parseSerialParameters(resp []byte) (SerialParameters, error) {
	var p SerialParameters
	var err error
	if p.BaudRate, err = parseBaudRate(resp); err != nil {
		return SerialParameters{}, err
	}
	if p.StopBit, err = parseStopBit(resp); err != nil {
		return SerialParameters{}, err
	}
	if p.Parity, err = parseParity(resp); err != nil {
		return SerialParameters{}, err
	}
	return p, nil
}

// parseField returns the bytes strictly between the first colon and the
// next carriage return.
func parseField(field string, resp []byte) (string, error) {
	colon := bytes.IndexByte(resp, ':')
	if colon < 0 {
		return "", parseErr(field, 0, resp)
	}
	end := bytes.IndexByte(resp[colon+1:], '\r')
	if end < 0 {
		return "", parseErr(field, colon+1, resp)
	}
	return string(resp[colon+1 : colon+1+end]), nil
}

func parseName(resp []byte) (string, error) {
	return parseField("name", resp)
}

// parsePIN takes the four bytes starting at offset 6.
func parsePIN(resp []byte) (string, error) {
	if len(resp) < pinOffset+pinLength {
		return "", parseErr("pin", pinOffset, resp)
	}
	pin := resp[pinOffset : pinOffset+pinLength]
	if bytes.ContainsAny(pin, "\"\r\n") {
		return "", parseErr("pin", pinOffset, resp)
	}
	return string(pin), nil
}

// parseAddress remaps the NAP:UAP:LAP form the module reports
// (+ADDR:98d3:31:fd5c6a) into colon separated octets (98:d3:31:fd:5c:6a).
// Only the zero padded, fixed width form is accepted.
func parseAddress(resp []byte) (string, error) {
	// NNNN:UU:LLLLLL
	const width = 4 + 1 + 2 + 1 + 6
	if len(resp) < addrOffset+width {
		return "", parseErr("address", addrOffset, resp)
	}
	a := resp[addrOffset : addrOffset+width]
	if a[4] != ':' || a[7] != ':' {
		return "", parseErr("address", addrOffset, resp)
	}
	octets := [6][2]int{{0, 2}, {2, 4}, {5, 7}, {8, 10}, {10, 12}, {12, 14}}

	out := make([]byte, 0, 17)
	for i, o := range octets {
		for _, c := range a[o[0]:o[1]] {
			if !isHex(c) {
				return "", parseErr("address", addrOffset+o[0], resp)
			}
		}
		if i > 0 {
			out = append(out, ':')
		}
		out = append(out, a[o[0]:o[1]]...)
	}
	return string(bytes.ToLower(out)), nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// parseRole decodes the digit at offset 6.
func parseRole(resp []byte) (Role, error) {
	if len(resp) <= roleOffset {
		return RoleUnknown, parseErr("role", roleOffset, resp)
	}
	switch resp[roleOffset] {
	case '0':
		return RoleSlave, nil
	case '1':
		return RoleMaster, nil
	case '2':
		return RoleSlaveLoop, nil
	default:
		return RoleUnknown, nil
	}
}

func parseState(resp []byte) (State, error) {
	name, err := parseField("state", resp)
	if err != nil {
		return StateUnknown, err
	}
	return stateFromName(name), nil
}

// moduleError returns the ERROR:(x) line of a failed response, if any.
func moduleError(resp []byte) string {
	for _, line := range at.Lines(resp) {
		if at.Classify(line) == at.TypeError {
			return line
		}
	}
	return ""
}
