package hc05

import "fmt"

// StopBit is the number of stop bits the module uses on its UART.
type StopBit uint8

const (
	StopBitOne StopBit = iota
	StopBitTwo
	// StopBitError is reported when the module answers with a digit that
	// does not name a stop bit setting. It can never be set.
	StopBitError
)

func (s StopBit) String() string {
	switch s {
	case StopBitOne:
		return "1"
	case StopBitTwo:
		return "2"
	default:
		return "error"
	}
}

// Parity is the parity setting of the module UART.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return fmt.Sprintf("raw(%d)", uint8(p))
	}
}

// SerialParameters is the UART configuration reported by AT+UART?.
//
// The three fields are independent. When read back from the module,
// StopBit is decoded (unknown digits become StopBitError) but Parity holds
// the raw digit the module sent, without being checked against the named
// Parity values. A module answering with parity digit 7 therefore yields
// Parity(7) rather than an error; callers that care must range-check it.
type SerialParameters struct {
	BaudRate uint32
	StopBit  StopBit
	Parity   Parity
}

// maxBaudRate bounds the baud rate to the 28 bits the module stores.
const maxBaudRate = 1<<28 - 1

func (p SerialParameters) validate(op string) error {
	if p.BaudRate == 0 || p.BaudRate > maxBaudRate {
		return &PreconditionError{Op: op, Param: "baud rate", Value: p.BaudRate}
	}
	if p.StopBit != StopBitOne && p.StopBit != StopBitTwo {
		return &PreconditionError{Op: op, Param: "stop bit", Value: p.StopBit}
	}
	if p.Parity > ParityEven {
		return &PreconditionError{Op: op, Param: "parity", Value: p.Parity}
	}
	return nil
}

func (p SerialParameters) String() string {
	return fmt.Sprintf("%d baud, %s stop bit(s), parity %s", p.BaudRate, p.StopBit, p.Parity)
}

// Role is the Bluetooth role reported by AT+ROLE?.
type Role uint8

const (
	RoleSlave Role = iota
	RoleMaster
	RoleSlaveLoop
	RoleUnknown
)

func (r Role) String() string {
	switch r {
	case RoleSlave:
		return "slave"
	case RoleMaster:
		return "master"
	case RoleSlaveLoop:
		return "slave-loop"
	default:
		return "unknown"
	}
}

// State is the connection state reported by AT+STATE?. The driver only
// decodes it on request; it does not track the module's state itself.
type State uint8

const (
	StateInitialized State = iota
	StateReady
	StatePairable
	StatePaired
	StateInquiring
	StateConnecting
	StateConnected
	StateDisconnected
	StateUnknown
)

var stateNames = [...]string{
	StateInitialized:  "INITIALIZED",
	StateReady:        "READY",
	StatePairable:     "PAIRABLE",
	StatePaired:       "PAIRED",
	StateInquiring:    "INQUIRING",
	StateConnecting:   "CONNECTING",
	StateConnected:    "CONNECTED",
	StateDisconnected: "DISCONNECTED",
	StateUnknown:      "UNKNOWN",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return stateNames[StateUnknown]
}

func stateFromName(name string) State {
	for i, n := range stateNames {
		if n == name {
			return State(i)
		}
	}
	return StateUnknown
}

// TransferMode selects the transport primitive used for a data transfer.
// Interrupt and DMA transfers return as soon as they are armed.
type TransferMode uint8

const (
	ModeBlocking TransferMode = iota
	ModeInterrupt
	ModeDMA
)

func (m TransferMode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeInterrupt:
		return "interrupt"
	case ModeDMA:
		return "dma"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseTransferMode maps the String form back to a TransferMode.
func ParseTransferMode(s string) (TransferMode, error) {
	switch s {
	case "blocking", "":
		return ModeBlocking, nil
	case "interrupt", "it":
		return ModeInterrupt, nil
	case "dma":
		return ModeDMA, nil
	}
	return 0, &PreconditionError{Op: "parse transfer mode", Param: "mode", Value: s}
}

func (m TransferMode) async() bool { return m == ModeInterrupt || m == ModeDMA }

func (m TransferMode) valid() bool { return m <= ModeDMA }
