package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prefix = "AT"

	// Response Codes
	OK         = "OK"
	OKResponse = OK + CRLF
	ERROR      = "ERROR"
	ErrorCode  = "ERROR:(" // HC-05 reports failures as ERROR:(<hex>)
	FAIL       = "FAIL"

	// Command verbs, sent as AT+<verb>
	VerbUART     = "UART"
	VerbName     = "NAME"
	VerbPassword = "PSWD"
	VerbAddress  = "ADDR"
	VerbRole     = "ROLE"
	VerbState    = "STATE"
	VerbVersion  = "VERSION"
	VerbReset    = "RESET"
	VerbRestore  = "ORGL"

	// Response tags that precede query results
	TagUART    = "+UART:"
	TagName    = "+NAME:"
	TagPIN     = "+PIN:"
	TagAddress = "+ADDR:"
	TagRole    = "+ROLE:"
	TagState   = "+STATE:"
	TagVersion = "+VERSION:"
)

type ResponseType int

const (
	TypeFinal ResponseType = iota // OK
	TypeError                     // ERROR, ERROR:(x), FAIL
	TypeData                      // Query output (+NAME:...)
	TypeText                      // Anything else, e.g. data-mode payload
)

func (t ResponseType) String() string {
	switch t {
	case TypeFinal:
		return "final"
	case TypeError:
		return "error"
	case TypeData:
		return "data"
	default:
		return "text"
	}
}
