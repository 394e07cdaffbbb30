package weather

import (
	"errors"
	"fmt"
	"net/http"
)

// Status is the numeric outcome of one fetch. Positive values are HTTP status
// codes, -255..-1 are HTTP client transport codes, -511..-256 are JSON decode
// failures and values <= -512 are link failures.
type Status int

const (
	StatusOK Status = http.StatusOK

	decodeOffset       = -256
	connectivityOffset = -512
)

// StatusKind names the band a Status falls in.
type StatusKind int

const (
	KindHTTP StatusKind = iota
	KindTransport
	KindDecode
	KindConnectivity
)

func (k StatusKind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindConnectivity:
		return "connectivity"
	default:
		return "unknown"
	}
}

// LinkStatus enumerates the states of the network link.
type LinkStatus int

const (
	LinkIdle LinkStatus = iota
	LinkNoSSIDAvailable
	LinkScanCompleted
	LinkConnected
	LinkConnectFailed
	LinkConnectionLost
	LinkDisconnected
)

var linkPhrases = map[LinkStatus]string{
	LinkIdle:            "Idle",
	LinkNoSSIDAvailable: "No SSID Available",
	LinkScanCompleted:   "Scan Completed",
	LinkConnected:       "Connected",
	LinkConnectFailed:   "Connect Failed",
	LinkConnectionLost:  "Connection Lost",
	LinkDisconnected:    "Disconnected",
}

func (l LinkStatus) String() string {
	if p, ok := linkPhrases[l]; ok {
		return p
	}
	return fmt.Sprintf("Link Status %d", int(l))
}

// DecodeCode is the ordinal of a JSON deserialization failure.
type DecodeCode int

const (
	DecodeOK DecodeCode = iota
	DecodeEmptyInput
	DecodeIncompleteInput
	DecodeInvalidInput
	DecodeNoMemory
	DecodeTooDeep
)

var decodePhrases = map[DecodeCode]string{
	DecodeOK:              "Ok",
	DecodeEmptyInput:      "Empty JSON input",
	DecodeIncompleteInput: "Incomplete JSON input",
	DecodeInvalidInput:    "Invalid JSON input",
	DecodeNoMemory:        "JSON input exceeds buffer",
	DecodeTooDeep:         "JSON nesting too deep",
}

func (c DecodeCode) String() string {
	if p, ok := decodePhrases[c]; ok {
		return p
	}
	return fmt.Sprintf("JSON error %d", int(c))
}

// Transport codes reported by the HTTP client layer.
const (
	TransportConnectionRefused = -1
	TransportSendHeaderFailed  = -2
	TransportSendPayloadFailed = -3
	TransportNotConnected      = -4
	TransportConnectionLost    = -5
	TransportNoStream          = -6
	TransportNoHTTPServer      = -7
	TransportTooLessRAM        = -8
	TransportEncoding          = -9
	TransportStreamWrite       = -10
	TransportReadTimeout       = -11
)

var transportPhrases = map[int]string{
	TransportConnectionRefused: "Connection Refused",
	TransportSendHeaderFailed:  "Send Header Failed",
	TransportSendPayloadFailed: "Send Payload Failed",
	TransportNotConnected:      "Not Connected",
	TransportConnectionLost:    "Connection Lost",
	TransportNoStream:          "No Stream",
	TransportNoHTTPServer:      "No HTTP Server",
	TransportTooLessRAM:        "Too Less RAM",
	TransportEncoding:          "Transfer-Encoding Not Supported",
	TransportStreamWrite:       "Stream Write Error",
	TransportReadTimeout:       "Read Timeout",
}

// ConnectivityStatus encodes a link failure.
func ConnectivityStatus(ls LinkStatus) Status {
	return Status(connectivityOffset - int(ls))
}

// DecodeStatus encodes a JSON decode failure.
func DecodeStatus(code DecodeCode) Status {
	return Status(decodeOffset - int(code))
}

// Kind reports which band s belongs to.
func (s Status) Kind() StatusKind {
	switch {
	case s <= connectivityOffset:
		return KindConnectivity
	case s <= decodeOffset:
		return KindDecode
	case s < 0:
		return KindTransport
	default:
		return KindHTTP
	}
}

// LinkStatus decodes a connectivity status. ok is false for other bands.
func (s Status) LinkStatus() (LinkStatus, bool) {
	if s.Kind() != KindConnectivity {
		return 0, false
	}
	return LinkStatus(connectivityOffset - int(s)), true
}

// DecodeCode decodes a JSON failure status. ok is false for other bands.
func (s Status) DecodeCode() (DecodeCode, bool) {
	if s.Kind() != KindDecode {
		return 0, false
	}
	return DecodeCode(decodeOffset - int(s)), true
}

// OK reports whether s is HTTP 200.
func (s Status) OK() bool {
	return s == StatusOK
}

// Phrase returns a short human readable description of s.
func (s Status) Phrase() string {
	switch s.Kind() {
	case KindConnectivity:
		ls, _ := s.LinkStatus()
		return ls.String()
	case KindDecode:
		code, _ := s.DecodeCode()
		return code.String()
	case KindTransport:
		if p, ok := transportPhrases[int(s)]; ok {
			return p
		}
		return "Transport Error"
	default:
		if p := http.StatusText(int(s)); p != "" {
			return p
		}
		return "Unknown Status"
	}
}

func (s Status) String() string {
	return fmt.Sprintf("%d: %s", int(s), s.Phrase())
}

// DecodeError reports a malformed, truncated or oversized payload.
type DecodeError struct {
	Code  DecodeCode
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", e.Stage, e.Code)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError carries an HTTP client transport code.
type TransportError struct {
	Code int
	Err  error
}

func (e *TransportError) Error() string {
	phrase := transportPhrases[e.Code]
	if phrase == "" {
		phrase = "transport error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%d): %v", phrase, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%d)", phrase, e.Code)
}

func (e *TransportError) Unwrap() error { return e.Err }

var (
	// ErrWeatherUnavailable is returned when neither weather endpoint succeeded.
	ErrWeatherUnavailable = errors.New("weather unavailable")
	// ErrAirQualityUnavailable is returned when the air pollution endpoint failed.
	ErrAirQualityUnavailable = errors.New("air quality unavailable")
)

// FetchError describes the final failed status of one endpoint.
type FetchError struct {
	Endpoint Endpoint
	Status   Status
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Status)
}

// ErrorScreen is what the renderer shows after a terminal failure.
type ErrorScreen struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}
