package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"

	json "github.com/goccy/go-json"
)

// maxErrorBodySize caps how much of a non-2xx body is kept on the Error.
const maxErrorBodySize = 64 << 10

// classifyResponse turns a received response into the raw body on 2xx, or a
// KindTransport error carrying the status code otherwise. It reads and
// closes resp.Body.
func classifyResponse(op, rawURL string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	if isSuccess(resp.StatusCode) {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, classifyTransportError(op, rawURL, resp.StatusCode, err)
		}
		return body, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	e := newTransportError(op, rawURL, strconv.Itoa(resp.StatusCode), resp.StatusCode,
		errors.New(http.StatusText(resp.StatusCode)))
	e.Body = body
	return nil, e
}

// classifyTransportError wraps a transport-level failure. statusCode is 0
// when no response was received.
func classifyTransportError(op, rawURL string, statusCode int, err error) error {
	return newTransportError(op, rawURL, classifyError(err), statusCode, err)
}

// decodeJSON decodes a successful body into a generic structured value.
func decodeJSON(op, rawURL string, body []byte) (any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, newJSONDecodeError(op, rawURL, err)
	}
	return v, nil
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// classifyError returns the Reason for a transport error.
func classifyError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrDownloadStalled) {
		return ReasonTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ReasonCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNSError
	}

	var tlsRecordErr *tls.RecordHeaderError
	if errors.As(err, &tlsRecordErr) {
		return ReasonTLSError
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ReasonTLSError
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonConnectionRefused
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return ReasonConnectionReset
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ReasonEOF
	}

	// Wrapped errors from other transports lose their types.
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"):
		return ReasonTimeout
	case strings.Contains(errStr, "connection refused"):
		return ReasonConnectionRefused
	case strings.Contains(errStr, "connection reset"):
		return ReasonConnectionReset
	case strings.Contains(errStr, "no such host"):
		return ReasonDNSError
	case strings.Contains(errStr, "tls"), strings.Contains(errStr, "certificate"),
		strings.Contains(errStr, "x509"):
		return ReasonTLSError
	case strings.Contains(errStr, "eof"):
		return ReasonEOF
	}

	return ReasonUnknown
}
