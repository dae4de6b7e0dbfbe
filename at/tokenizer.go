package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing AT traffic in both directions. It uses
// the signature of bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// It splits the input by CRLF line endings. The HC-05 terminates every
// command and every response line with CRLF; a bare CR is accepted as well
// because some terminals send only CR when a user types a command.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. Match the line terminator: CRLF, or a lone CR followed by anything else
	if i := bytes.IndexByte(data, '\r'); i >= 0 {
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + len(CRLF), data[0:i], nil
			}
			return i + 1, data[0:i], nil
		}
		if atEOF {
			return len(data), data[0:i], nil
		}
		// The LF may still be on its way
		return 0, nil, nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Classify identifies the nature of a module output line
func Classify(line string) ResponseType {
	switch line {
	case OK:
		return TypeFinal
	case ERROR, FAIL:
		return TypeError
	}

	switch {
	case strings.HasPrefix(line, ErrorCode):
		return TypeError
	case strings.HasPrefix(line, "+") && strings.Contains(line, ":"):
		return TypeData
	default:
		return TypeText
	}
}

// Lines splits a raw response into its CRLF-delimited lines, dropping
// empty ones.
func Lines(resp []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(resp))
	scanner.Split(Splitter)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
