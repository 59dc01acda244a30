package httpclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Client issues requests in four shapes: decoded JSON, raw bytes, streamed
// download with progress, and multipart upload. Every call validates the
// URL before anything else and fails with a single *Error type.
//
// A Client holds only configuration and is safe for concurrent use.
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("catalog"),
//	    httpclient.WithLogger(logger),
//	)
//
//	v, err := client.RequestJSON(ctx, "https://api.example.com/items", http.MethodGet,
//	    httpclient.RequestOptions{Params: map[string]any{"page": 2}})
type Client struct {
	doer Doer
	cfg  *internalConfig
}

// New creates a Client. Without WithDoer, requests go through an
// instrumented *http.Transport built from Config.
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)

	doer := cfg.Doer
	if doer == nil {
		var base http.RoundTripper = cfg.buildTransport()
		if cfg.MockTransport != nil {
			base = cfg.MockTransport
		}
		// Deadlines are per call, so the engine itself has no timeout.
		doer = &http.Client{Transport: newOtelTransport(base, cfg)}
	}

	return &Client{doer: doer, cfg: cfg}
}

// RequestJSON sends a request and decodes a 2xx body as JSON into a
// generic value (map[string]any, []any, string, float64, bool or nil).
//
// Failures: KindInvalidURL before dispatch, KindTransport with the status
// code when a response arrived, KindJSONDecode when the body is not JSON.
// The request is bounded by RequestTimeout.
func (c *Client) RequestJSON(ctx context.Context, rawURL, method string, opts RequestOptions) (any, error) {
	ctx, cl := c.startCall(ctx, OpRequestJSON, rawURL)

	body, err := c.request(ctx, cl, method, opts)
	var v any
	if err == nil {
		v, err = decodeJSON(cl.op, rawURL, body)
	}

	c.finishCall(ctx, cl, len(body), err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// RequestData sends a request and returns a 2xx body unmodified.
// Failures are as for RequestJSON, minus KindJSONDecode.
func (c *Client) RequestData(ctx context.Context, rawURL, method string, opts RequestOptions) ([]byte, error) {
	ctx, cl := c.startCall(ctx, OpRequestData, rawURL)

	body, err := c.request(ctx, cl, method, opts)

	c.finishCall(ctx, cl, len(body), err)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Upload POSTs the given files as multipart/form-data, one part per
// field, and returns the raw 2xx body. The body is never decoded.
// An empty fields map sends a body with zero parts.
func (c *Client) Upload(
	ctx context.Context,
	rawURL string,
	fields map[string]string,
	headers map[string]string,
) ([]byte, error) {
	return c.UploadEntries(ctx, rawURL, EntriesFromMap(fields), headers)
}

// UploadEntries is Upload with an explicit part list. Entries sharing a
// field name are all sent, in order.
func (c *Client) UploadEntries(
	ctx context.Context,
	rawURL string,
	entries []MultipartEntry,
	headers map[string]string,
) ([]byte, error) {
	ctx, cl := c.startCall(ctx, OpUpload, rawURL)

	body, err := c.upload(ctx, cl, entries, headers)

	c.finishCall(ctx, cl, len(body), err)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) request(ctx context.Context, cl *call, method string, opts RequestOptions) ([]byte, error) {
	u, err := validateURL(cl.op, cl.rawURL)
	if err != nil {
		return nil, err
	}

	desc, err := newRequestDescriptor(u, method, opts)
	if err != nil {
		return nil, newTransportError(cl.op, cl.rawURL, ReasonRequestEncoding, 0, err)
	}

	return c.exchange(ctx, cl, desc)
}

func (c *Client) upload(
	ctx context.Context,
	cl *call,
	entries []MultipartEntry,
	headers map[string]string,
) ([]byte, error) {
	u, err := validateURL(cl.op, cl.rawURL)
	if err != nil {
		return nil, err
	}

	mp, err := BuildMultipart(entries)
	if err != nil {
		return nil, newTransportError(cl.op, cl.rawURL, ReasonRequestEncoding, 0, err)
	}

	h := ComposeHeaders(headers)
	// The boundary lives in the generated Content-Type.
	h.Del("Content-Type")

	return c.exchange(ctx, cl, &requestDescriptor{
		url:         u,
		method:      http.MethodPost,
		headers:     h,
		body:        mp.Data,
		contentType: mp.ContentType,
		timeout:     RequestTimeout,
	})
}

// exchange submits desc under its timeout and classifies the result.
func (c *Client) exchange(ctx context.Context, cl *call, desc *requestDescriptor) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, desc.timeout)
	defer cancel()

	req, err := desc.newRequest(ctx, c.cfg.httpConfig.UserAgent)
	if err != nil {
		return nil, newTransportError(cl.op, cl.rawURL, ReasonRequestEncoding, 0, err)
	}

	resp, err := c.send(cl, req, desc.body)
	if err != nil {
		return nil, classifyTransportError(cl.op, cl.rawURL, cl.status, err)
	}

	return classifyResponse(cl.op, cl.rawURL, resp)
}

// send hands req to the transport engine and records the status code.
func (c *Client) send(cl *call, req *http.Request, body []byte) (*http.Response, error) {
	if c.cfg.Debug {
		logRequest(cl.logger, req, body)
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	if resp != nil {
		cl.status = resp.StatusCode
	}
	if err != nil {
		// A response returned alongside an error has its body closed already.
		return nil, err
	}

	if c.cfg.Debug {
		logResponse(cl.logger, resp, time.Since(start))
	}
	return resp, nil
}

// call is the per-call bookkeeping shared by the four operations.
type call struct {
	id     string
	op     string
	rawURL string
	start  time.Time
	span   trace.Span
	logger zerolog.Logger

	// status is the last HTTP status code received, 0 if none.
	status int
}

func (c *Client) startCall(ctx context.Context, op, rawURL string) (context.Context, *call) {
	id := uuid.NewString()

	attrs := append(c.cfg.baseAttributes(),
		attribute.String("netrequest.call_id", id),
		attribute.String("netrequest.operation", op),
	)
	ctx, span := c.cfg.Tracer.Start(ctx, "netrequest."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	return ctx, &call{
		id:     id,
		op:     op,
		rawURL: rawURL,
		start:  time.Now(),
		span:   span,
		logger: c.cfg.Logger.With().Str("call_id", id).Str("op", op).Logger(),
	}
}

// finishCall records the outcome on the span, metrics, log and observers.
// It runs exactly once per call.
func (c *Client) finishCall(ctx context.Context, cl *call, size int, err error) {
	duration := time.Since(cl.start)
	rec := CallRecord{
		Op:         cl.op,
		CallID:     cl.id,
		StatusCode: cl.status,
		Bytes:      size,
		Duration:   duration,
	}

	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			rec.Kind = e.Kind
			rec.Reason = e.Reason
		}
		rec.Bytes = 0

		cl.span.RecordError(err)
		cl.span.SetStatus(codes.Error, err.Error())
		cl.span.SetAttributes(attribute.String("netrequest.error.kind", rec.Kind.String()))
		logFailure(cl.logger, err)
	}
	if rec.StatusCode != 0 {
		cl.span.SetAttributes(attribute.Int("http.response.status_code", rec.StatusCode))
	}
	cl.span.SetAttributes(attribute.String("netrequest.outcome", rec.Outcome()))

	c.cfg.Metrics.recordCall(ctx, cl.op, rec.Outcome(), duration, c.cfg.baseAttributes())
	for _, o := range c.cfg.Observers {
		o.ObserveCall(rec)
	}
	cl.span.End()
}
