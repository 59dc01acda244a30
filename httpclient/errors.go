package httpclient

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindInvalidURL means the URL string was rejected before dispatch.
	// No network activity happened and no status code is attached.
	KindInvalidURL Kind = iota + 1

	// KindTransport means the exchange did not complete successfully:
	// DNS, connect, TLS, timeout, a body read failure, or a non-2xx
	// response. A status code is attached only when a response arrived.
	KindTransport

	// KindJSONDecode means the exchange succeeded but the body was not
	// valid JSON. No status code is attached.
	KindJSONDecode
)

// String returns the kind as used in logs, span attributes and metric labels.
func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindTransport:
		return "transport"
	case KindJSONDecode:
		return "json_decode"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Sentinel errors, one per Kind. Every *Error matches exactly one of them
// with errors.Is.
var (
	ErrInvalidURL = errors.New("invalid url")
	ErrTransport  = errors.New("transport error")
	ErrJSONDecode = errors.New("json decode error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidURL:
		return ErrInvalidURL
	case KindJSONDecode:
		return ErrJSONDecode
	default:
		return ErrTransport
	}
}

// Transport failure reasons carried in Error.Reason. Non-2xx responses use
// the status code itself (e.g. "404").
const (
	ReasonTimeout           = "timeout"
	ReasonConnectionRefused = "connection_refused"
	ReasonDNSError          = "dns_error"
	ReasonTLSError          = "tls_error"
	ReasonCancelled         = "cancelled"
	ReasonConnectionReset   = "connection_reset"
	ReasonEOF               = "eof"
	ReasonRequestEncoding   = "request_encoding"
	ReasonUnknown           = "unknown"
)

// Error is the single failure type returned by every Client operation.
//
// Use errors.Is with ErrInvalidURL, ErrTransport or ErrJSONDecode to branch
// on the kind, and errors.Is / errors.As against the native cause (for
// example context.DeadlineExceeded or *net.DNSError) when more detail is
// needed:
//
//	data, err := client.RequestData(ctx, url, http.MethodGet, httpclient.RequestOptions{})
//	if code, ok := httpclient.StatusCodeOf(err); ok && code == http.StatusNotFound {
//	    // handle missing resource
//	}
type Error struct {
	// Kind is the failure classification.
	Kind Kind

	// Op is the operation that failed (RequestJSON, RequestData, Download, Upload).
	Op string

	// URL is the URL string the caller supplied.
	URL string

	// Reason refines KindTransport failures. Empty for other kinds.
	Reason string

	// Body holds up to 64 KiB of a non-2xx response body.
	Body []byte

	// Err is the native cause.
	Err error

	statusCode int
}

// StatusCode returns the HTTP status code and true when the transport
// received a response, or 0 and false otherwise.
func (e *Error) StatusCode() (int, bool) {
	return e.statusCode, e.statusCode != 0
}

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	if e.URL != "" {
		b.WriteString(strconv.Quote(e.URL))
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.sentinel().Error())
	if e.statusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.statusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the native cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// StatusCodeOf extracts the HTTP status code from an error returned by a
// Client operation. It returns false when err is not an *Error or when no
// response was received.
func StatusCodeOf(err error) (int, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.StatusCode()
}

// KindOf returns the Kind of an error returned by a Client operation, or 0
// when err is nil or not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return 0
	}
	return e.Kind
}

func newInvalidURLError(op, rawURL string, cause error) *Error {
	return &Error{Kind: KindInvalidURL, Op: op, URL: rawURL, Err: cause}
}

func newTransportError(op, rawURL, reason string, statusCode int, cause error) *Error {
	return &Error{
		Kind:       KindTransport,
		Op:         op,
		URL:        rawURL,
		Reason:     reason,
		Err:        cause,
		statusCode: statusCode,
	}
}

func newJSONDecodeError(op, rawURL string, cause error) *Error {
	return &Error{Kind: KindJSONDecode, Op: op, URL: rawURL, Err: cause}
}
