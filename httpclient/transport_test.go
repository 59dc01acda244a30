package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type telemetry struct {
	exporter *tracetest.InMemoryExporter
	reader   *sdkmetric.ManualReader
	opts     []Option
}

func newTelemetry(t *testing.T) *telemetry {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	return &telemetry{
		exporter: exporter,
		reader:   reader,
		opts:     []Option{WithTracerProvider(tp), WithMeterProvider(mp)},
	}
}

func (tel *telemetry) span(t *testing.T, name string) tracetest.SpanStub {
	t.Helper()
	for _, s := range tel.exporter.GetSpans() {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("span %q not recorded", name)
	return tracetest.SpanStub{}
}

func (tel *telemetry) metric(t *testing.T, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tel.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %q not recorded", name)
	return metricdata.Metrics{}
}

func attrMap(attrs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func TestOtelTransport_RoundTrip(t *testing.T) {
	tests := []struct {
		name         string
		mock         *MockTransport
		method       string
		wantErr      assert.ErrorAssertionFunc
		wantSpanName string
		wantStatus   codes.Code
		wantErrType  any
	}{
		{
			name:         "given 200, then records an unset status span",
			mock:         NewMockTransport().StubResponse(http.StatusOK, "ok"),
			method:       http.MethodGet,
			wantErr:      assert.NoError,
			wantSpanName: "HTTP GET",
			wantStatus:   codes.Unset,
		},
		{
			name:         "given 503, then marks the span as error",
			mock:         NewMockTransport().StubResponse(http.StatusServiceUnavailable, ""),
			method:       http.MethodPost,
			wantErr:      assert.NoError,
			wantSpanName: "HTTP POST",
			wantStatus:   codes.Error,
			wantErrType:  "503",
		},
		{
			name:         "given refused connection, then records error type",
			mock:         NewMockTransport().StubError(errors.New("dial tcp: connection refused")),
			method:       http.MethodGet,
			wantErr:      assert.Error,
			wantSpanName: "HTTP GET",
			wantStatus:   codes.Error,
			wantErrType:  ReasonConnectionRefused,
		},
		{
			name:         "given cancelled context, then records cancelled",
			mock:         NewMockTransport().StubError(context.Canceled),
			method:       http.MethodGet,
			wantErr:      assert.Error,
			wantSpanName: "HTTP GET",
			wantStatus:   codes.Error,
			wantErrType:  ReasonCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tel := newTelemetry(t)
			cfg := newConfig(append(tel.opts, WithServiceName("catalog"))...)
			transport := newOtelTransport(tt.mock, cfg)

			req, err := http.NewRequest(tt.method, "https://api.example.com/items", nil)
			require.NoError(t, err)

			resp, err := transport.RoundTrip(req)
			tt.wantErr(t, err)
			if err == nil {
				_ = resp.Body.Close()
			}

			span := tel.span(t, tt.wantSpanName)
			assert.Equal(t, tt.wantStatus, span.Status.Code)
			attrs := attrMap(span.Attributes)
			assert.Equal(t, "catalog", attrs["http.client.name"])
			assert.Equal(t, tt.wantErrType, attrs["error.type"])

			m := tel.metric(t, "http.client.request.duration")
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)
			assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
		})
	}
}

func TestOtelTransport_TracePropagation(t *testing.T) {
	tel := newTelemetry(t)

	var traceparent string
	mock := NewMockTransport().
		StubResponse(http.StatusOK, "").
		OnRequest(func(r *http.Request) { traceparent = r.Header.Get("Traceparent") })
	client := New(append(tel.opts, WithMockTransport(mock))...)

	_, err := client.RequestData(context.Background(), "https://api.example.com/a", http.MethodGet, RequestOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, traceparent)
	exchange := tel.span(t, "HTTP GET")
	assert.Contains(t, traceparent, exchange.SpanContext.TraceID().String())
}

func TestOtelTransport_RequestAttributes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		url        string
		bodySize   int64
		userAgent  string
		wantScheme string
		wantHost   string
		wantPort   int64
	}{
		{
			name:       "given https with custom port, then extracts all attrs",
			method:     http.MethodPost,
			url:        "https://api.example.com:8443/users",
			bodySize:   1024,
			userAgent:  "catalog/1.0",
			wantScheme: "https",
			wantHost:   "api.example.com",
			wantPort:   8443,
		},
		{
			name:       "given http without port, then uses 80",
			method:     http.MethodGet,
			url:        "http://example.com/path",
			wantScheme: "http",
			wantHost:   "example.com",
			wantPort:   80,
		},
		{
			name:       "given https without port, then uses 443",
			method:     http.MethodGet,
			url:        "https://example.com/path",
			wantScheme: "https",
			wantHost:   "example.com",
			wantPort:   443,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &otelTransport{cfg: &internalConfig{}}

			req, err := http.NewRequest(tt.method, tt.url, nil)
			require.NoError(t, err)
			req.ContentLength = tt.bodySize
			if tt.userAgent != "" {
				req.Header.Set("User-Agent", tt.userAgent)
			}

			attrs := attrMap(transport.requestAttributes(req))

			assert.Equal(t, tt.method, attrs["http.request.method"])
			assert.Equal(t, tt.wantScheme, attrs["url.scheme"])
			assert.Equal(t, tt.wantHost, attrs["server.address"])
			assert.Equal(t, tt.wantPort, attrs["server.port"])
			if tt.bodySize > 0 {
				assert.Equal(t, tt.bodySize, attrs["http.request.body.size"])
			}
			if tt.userAgent != "" {
				assert.Equal(t, tt.userAgent, attrs["user_agent.original"])
			}
		})
	}
}

func TestClient_CallSpans(t *testing.T) {
	tests := []struct {
		name        string
		stubStatus  int
		stubBody    string
		wantStatus  codes.Code
		wantOutcome string
		wantKind    any
	}{
		{
			name:        "given success, then ends the call span as success",
			stubStatus:  http.StatusOK,
			stubBody:    `{"a":1}`,
			wantStatus:  codes.Unset,
			wantOutcome: "success",
		},
		{
			name:        "given malformed body, then records json_decode",
			stubStatus:  http.StatusOK,
			stubBody:    `{"a":`,
			wantStatus:  codes.Error,
			wantOutcome: "json_decode",
			wantKind:    "json_decode",
		},
		{
			name:        "given 401, then records transport",
			stubStatus:  http.StatusUnauthorized,
			wantStatus:  codes.Error,
			wantOutcome: "transport",
			wantKind:    "transport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tel := newTelemetry(t)
			mock := NewMockTransport().StubResponse(tt.stubStatus, tt.stubBody)
			client := New(append(tel.opts, WithMockTransport(mock))...)

			_, _ = client.RequestJSON(context.Background(), "https://api.example.com/a", http.MethodGet, RequestOptions{})

			call := tel.span(t, "netrequest.RequestJSON")
			exchange := tel.span(t, "HTTP GET")

			assert.Equal(t, call.SpanContext.SpanID(), exchange.Parent.SpanID())
			assert.Equal(t, tt.wantStatus, call.Status.Code)

			attrs := attrMap(call.Attributes)
			assert.NotEmpty(t, attrs["netrequest.call_id"])
			assert.Equal(t, OpRequestJSON, attrs["netrequest.operation"])
			assert.Equal(t, tt.wantOutcome, attrs["netrequest.outcome"])
			assert.Equal(t, tt.wantKind, attrs["netrequest.error.kind"])
			assert.Equal(t, int64(tt.stubStatus), attrs["http.response.status_code"])

			m := tel.metric(t, "netrequest.call.duration")
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)
			outcome, _ := hist.DataPoints[0].Attributes.Value("netrequest.outcome")
			assert.Equal(t, tt.wantOutcome, outcome.AsString())
		})
	}
}

func TestClient_InvalidURLSpan(t *testing.T) {
	tel := newTelemetry(t)
	client := New(append(tel.opts, WithMockTransport(NewMockTransport()))...)

	_, err := client.RequestData(context.Background(), "", http.MethodGet, RequestOptions{})
	require.Error(t, err)

	spans := tel.exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "netrequest.RequestData", spans[0].Name)
	assert.Equal(t, "invalid_url", attrMap(spans[0].Attributes)["netrequest.error.kind"])
}

func TestClient_DownloadBytesMetric(t *testing.T) {
	tel := newTelemetry(t)
	mock := NewMockTransport().StubResponse(http.StatusOK, "0123456789")
	client := New(append(tel.opts, WithMockTransport(mock))...)

	_, err := client.Download(context.Background(), "https://cdn.example.com/x", DownloadOptions{}).Wait()
	require.NoError(t, err)

	m := tel.metric(t, "netrequest.download.bytes")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(10), sum.DataPoints[0].Value)

	tel.span(t, "netrequest.Download")
}
