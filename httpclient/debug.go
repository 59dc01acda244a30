package httpclient

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// generateCurlCommand creates a cURL command equivalent for the given request.
//
// Example output:
//
//	curl -X POST 'https://api.example.com/users' -H 'Content-Type: application/json' -d '{"name":"John"}'
func generateCurlCommand(req *http.Request, body []byte) string {
	parts := []string{"curl"}

	if req.Method != http.MethodGet {
		parts = append(parts, "-X", req.Method)
	}

	parts = append(parts, shellQuote(req.URL.String()))

	for _, k := range slices.Sorted(maps.Keys(req.Header)) {
		for _, v := range req.Header[k] {
			parts = append(parts, "-H", shellQuote(k+": "+v))
		}
	}

	if len(body) > 0 {
		parts = append(parts, "--data-binary", shellQuote(string(body)))
	}

	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func logRequest(logger zerolog.Logger, req *http.Request, body []byte) {
	logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Str("curl", generateCurlCommand(req, body)).
		Msg("HTTP request")
}

func logResponse(logger zerolog.Logger, resp *http.Response, duration time.Duration) {
	logger.Debug().
		Int("status", resp.StatusCode).
		Str("status_text", resp.Status).
		Dur("duration_ms", duration).
		Int64("content_length", resp.ContentLength).
		Msg("HTTP response")
}

// logFailure is the diagnostic side of every failed call. The error is
// still returned to the caller.
func logFailure(logger zerolog.Logger, err error) {
	var e *Error
	if !errors.As(err, &e) {
		logger.Debug().Err(err).Msg("request failed")
		return
	}

	evt := logger.Debug().
		Err(e.Err).
		Str("kind", e.Kind.String()).
		Str("url", e.URL)
	if e.Reason != "" {
		evt = evt.Str("reason", e.Reason)
	}
	if code, ok := e.StatusCode(); ok {
		evt = evt.Int("status", code)
	}
	if len(e.Body) > 0 {
		evt = evt.Int("error_body_size", len(e.Body))
	}
	evt.Msg(fmt.Sprintf("%s failed", e.Op))
}
