package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type failingBody struct{ err error }

func (b failingBody) Read([]byte) (int, error) { return 0, b.err }
func (b failingBody) Close() error            { return nil }

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name       string
		resp       *http.Response
		wantBody   string
		wantErr    bool
		wantStatus int
		wantReason string
		wantErrMsg string
	}{
		{
			name:     "given 200, then returns the body",
			resp:     newResponse(http.StatusOK, `{"ok":true}`),
			wantBody: `{"ok":true}`,
		},
		{
			name:     "given 204 with no body, then returns empty bytes",
			resp:     newResponse(http.StatusNoContent, ""),
			wantBody: "",
		},
		{
			name:       "given 404, then fails with status and error body",
			resp:       newResponse(http.StatusNotFound, `{"error":"missing"}`),
			wantErr:    true,
			wantStatus: http.StatusNotFound,
			wantReason: "404",
			wantErrMsg: `{"error":"missing"}`,
		},
		{
			name:       "given 500, then fails with status",
			resp:       newResponse(http.StatusInternalServerError, "oops"),
			wantErr:    true,
			wantStatus: http.StatusInternalServerError,
			wantReason: "500",
			wantErrMsg: "oops",
		},
		{
			name: "given 200 with a failing body, then fails with status and eof reason",
			resp: &http.Response{
				StatusCode: http.StatusOK,
				Body:       failingBody{err: io.ErrUnexpectedEOF},
			},
			wantErr:    true,
			wantStatus: http.StatusOK,
			wantReason: ReasonEOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := classifyResponse(OpRequestData, "https://x.test", tt.resp)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.wantBody, string(body))
				return
			}

			require.Error(t, err)
			assert.Nil(t, body)
			assert.ErrorIs(t, err, ErrTransport)

			var e *Error
			require.ErrorAs(t, err, &e)
			code, ok := e.StatusCode()
			assert.True(t, ok)
			assert.Equal(t, tt.wantStatus, code)
			assert.Equal(t, tt.wantReason, e.Reason)
			assert.Equal(t, tt.wantErrMsg, string(e.Body))
		})
	}
}

func TestClassifyResponse_CapsErrorBody(t *testing.T) {
	big := strings.Repeat("x", maxErrorBodySize+100)

	_, err := classifyResponse(OpRequestData, "https://x.test", newResponse(http.StatusBadGateway, big))

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Len(t, e.Body, maxErrorBodySize)
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "given object, then decodes", body: `{"a":1,"b":[true,null,"x"]}`},
		{name: "given array, then decodes", body: `[1,2,3]`},
		{name: "given scalar, then decodes", body: `"hello"`},
		{name: "given truncated object, then fails", body: `{"a":`, wantErr: true},
		{name: "given html, then fails", body: `<html></html>`, wantErr: true},
		{name: "given empty body, then fails", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeJSON(OpRequestJSON, "https://x.test", []byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrJSONDecode)
				_, ok := StatusCodeOf(err)
				assert.False(t, ok)
				return
			}

			require.NoError(t, err)
			var want any
			require.NoError(t, json.Unmarshal([]byte(tt.body), &want))
			assert.Equal(t, want, got)
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "given nil, then returns empty", err: nil, want: ""},
		{name: "given stalled download, then returns timeout", err: fmt.Errorf("%w: %w", ErrDownloadStalled, context.Canceled), want: ReasonTimeout},
		{name: "given cancelled context, then returns cancelled", err: context.Canceled, want: ReasonCancelled},
		{name: "given deadline exceeded, then returns timeout", err: context.DeadlineExceeded, want: ReasonTimeout},
		{
			name: "given url error wrapping deadline, then returns timeout",
			err:  &url.Error{Op: "Get", URL: "https://x.test", Err: context.DeadlineExceeded},
			want: ReasonTimeout,
		},
		{name: "given dns error, then returns dns_error", err: &net.DNSError{Err: "no such host", Name: "x.invalid"}, want: ReasonDNSError},
		{
			name: "given certificate error, then returns tls_error",
			err:  &tls.CertificateVerificationError{Err: errors.New("x509: unknown authority")},
			want: ReasonTLSError,
		},
		{
			name: "given refused dial, then returns connection_refused",
			err:  &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			want: ReasonConnectionRefused,
		},
		{name: "given reset, then returns connection_reset", err: syscall.ECONNRESET, want: ReasonConnectionReset},
		{name: "given unexpected eof, then returns eof", err: io.ErrUnexpectedEOF, want: ReasonEOF},
		{name: "given opaque tls text, then returns tls_error", err: errors.New("remote error: tls: handshake failure"), want: ReasonTLSError},
		{name: "given anything else, then returns unknown", err: errors.New("boom"), want: ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}
