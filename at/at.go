package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = ">"

	// Response Codes
	OK       = "OK"
	ERROR    = "ERROR"
	FAIL     = "FAIL"
	SendOK   = "SEND OK"
	SendFail = "SEND FAIL"
	Busy     = "busy p..."
	Connect  = "CONNECT"
	Closed   = "CLOSED"

	// URCs (Unsolicited Result Codes)
	UrcReady        = "ready"
	UrcWifiUp       = "WIFI CONNECTED"
	UrcWifiGotIP    = "WIFI GOT IP"
	UrcWifiDown     = "WIFI DISCONNECTED"
	UrcTimeUpdated  = "+TIME_UPDATED"
	UrcDistConnect  = "+DIST_STA_IP:"
	UrcPassiveBytes = "+IPD,"
)

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR, SEND OK
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+CWJAP: ...)
	TypePrompt                     // CIPSEND payload prompt
)

func (t ResponseType) String() string {
	switch t {
	case TypeFinal:
		return "final"
	case TypeURC:
		return "urc"
	case TypeData:
		return "data"
	case TypePrompt:
		return "prompt"
	default:
		return "unknown"
	}
}
