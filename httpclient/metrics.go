package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the OpenTelemetry instruments of a Client.
type metrics struct {
	// === Exchange metrics (recorded by otelTransport) ===

	// requestDuration measures one round trip, headers received.
	requestDuration metric.Float64Histogram

	// requestBodySize measures request bodies in bytes.
	requestBodySize metric.Int64Histogram

	// responseBodySize measures declared response bodies in bytes.
	responseBodySize metric.Int64Histogram

	// activeRequests tracks in-flight round trips.
	activeRequests metric.Int64UpDownCounter

	// requestErrors counts round trips that failed without a response.
	requestErrors metric.Int64Counter

	// === Call metrics (recorded by Client) ===

	// callDuration measures a whole facade call, validation to outcome.
	callDuration metric.Float64Histogram

	// downloadBytes counts bytes received by Download calls.
	downloadBytes metric.Int64Counter
}

// newMetrics creates and registers metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.requestDuration, err = meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10, 30,
		),
	)
	if err != nil {
		return nil, err
	}

	m.requestBodySize, err = meter.Int64Histogram(
		"http.client.request.body.size",
		metric.WithDescription("Size of HTTP client request bodies in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(
			0, 100, 1024, 10*1024, 100*1024, 1024*1024, 10*1024*1024,
		),
	)
	if err != nil {
		return nil, err
	}

	m.responseBodySize, err = meter.Int64Histogram(
		"http.client.response.body.size",
		metric.WithDescription("Size of HTTP client response bodies in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(
			0, 100, 1024, 10*1024, 100*1024, 1024*1024, 10*1024*1024,
		),
	)
	if err != nil {
		return nil, err
	}

	m.activeRequests, err = meter.Int64UpDownCounter(
		"http.client.active_requests",
		metric.WithDescription("Number of active HTTP client requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.requestErrors, err = meter.Int64Counter(
		"http.client.request.error",
		metric.WithDescription("Number of HTTP client requests that received no response"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	m.callDuration, err = meter.Float64Histogram(
		"netrequest.call.duration",
		metric.WithDescription("Duration of client calls from validation to outcome in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300,
		),
	)
	if err != nil {
		return nil, err
	}

	m.downloadBytes, err = meter.Int64Counter(
		"netrequest.download.bytes",
		metric.WithDescription("Bytes received by downloads"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metrics) recordRequestDuration(
	ctx context.Context,
	duration time.Duration,
	attrs []attribute.KeyValue,
) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordRequestBodySize(ctx context.Context, size int64, attrs []attribute.KeyValue) {
	if m == nil || m.requestBodySize == nil {
		return
	}
	m.requestBodySize.Record(ctx, size, metric.WithAttributes(attrs...))
}

func (m *metrics) recordResponseBodySize(ctx context.Context, size int64, attrs []attribute.KeyValue) {
	if m == nil || m.responseBodySize == nil {
		return
	}
	m.responseBodySize.Record(ctx, size, metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveRequestStart(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveRequestEnd(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs...))
}

// recordError records a round trip that failed without a response.
func (m *metrics) recordError(ctx context.Context, reason string, attrs []attribute.KeyValue) {
	if m == nil || m.requestErrors == nil {
		return
	}
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attrs...)
	allAttrs = append(allAttrs, attribute.String("error.type", reason))
	m.requestErrors.Add(ctx, 1, metric.WithAttributes(allAttrs...))
}

// recordCall records the outcome of one facade call.
func (m *metrics) recordCall(
	ctx context.Context,
	op string,
	outcome string,
	duration time.Duration,
	attrs []attribute.KeyValue,
) {
	if m == nil || m.callDuration == nil {
		return
	}
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs, attrs...)
	allAttrs = append(allAttrs,
		attribute.String("netrequest.operation", op),
		attribute.String("netrequest.outcome", outcome),
	)
	m.callDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(allAttrs...))
}

func (m *metrics) recordDownloadBytes(ctx context.Context, n int64, attrs []attribute.KeyValue) {
	if m == nil || m.downloadBytes == nil || n <= 0 {
		return
	}
	m.downloadBytes.Add(ctx, n, metric.WithAttributes(attrs...))
}
