package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RequestOptions are the optional parts of a RequestJSON or RequestData
// call. The zero value sends no parameters and no extra headers.
//
// Example:
//
//	opts := httpclient.RequestOptions{
//	    Params:   map[string]any{"page": 1, "tags": []string{"a", "b"}},
//	    Encoding: httpclient.EncodingQuery,
//	    Headers:  http.Header{"Authorization": {"Bearer " + token}},
//	}
type RequestOptions struct {
	// Params are encoded according to Encoding.
	Params map[string]any

	// Encoding defaults to EncodingURL.
	Encoding Encoding

	// Headers are sent as given. A Content-Type here wins over the one
	// implied by Encoding.
	Headers http.Header
}

// requestDescriptor is everything needed to build one outgoing request.
// It is built per call and never reused.
type requestDescriptor struct {
	url         *url.URL
	method      string
	headers     http.Header
	body        []byte
	contentType string

	// timeout is RequestTimeout for every call shape except Download,
	// where it is zero.
	timeout time.Duration
}

// newRequestDescriptor composes method, parameters and headers for
// RequestJSON and RequestData.
func newRequestDescriptor(u *url.URL, method string, opts RequestOptions) (*requestDescriptor, error) {
	method = strings.ToUpper(method)
	if method == "" {
		method = http.MethodGet
	}

	enc, err := encodeParams(method, opts.Params, opts.Encoding)
	if err != nil {
		return nil, err
	}

	target := *u
	appendQuery(&target, enc.rawQuery)

	headers := make(http.Header, len(opts.Headers))
	mergeHeaders(headers, opts.Headers)

	return &requestDescriptor{
		url:         &target,
		method:      method,
		headers:     headers,
		body:        enc.body,
		contentType: enc.contentType,
		timeout:     RequestTimeout,
	}, nil
}

// newRequest materializes the descriptor. userAgent is applied unless the
// headers already carry one.
func (d *requestDescriptor) newRequest(ctx context.Context, userAgent string) (*http.Request, error) {
	var body io.Reader
	if d.body != nil {
		body = bytes.NewReader(d.body)
	}

	req, err := http.NewRequestWithContext(ctx, d.method, d.url.String(), body)
	if err != nil {
		return nil, err
	}

	mergeHeaders(req.Header, d.headers)
	if d.contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", d.contentType)
	}
	if userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	return req, nil
}
