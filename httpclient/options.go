package httpclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/netrequest/httpclient"

	// RequestTimeout bounds every RequestJSON, RequestData and Upload call,
	// from dispatch to the last body byte. It cannot be changed per call.
	RequestTimeout = 30 * time.Second

	// DefaultDownloadStallTimeout is how long a download may go without
	// receiving a byte (headers included) before it fails with a timeout.
	// Downloads have no total deadline.
	DefaultDownloadStallTimeout = 30 * time.Second
)

// =============================================================================
// Config - Transport Engine Configuration
// =============================================================================

// Config holds the transport engine settings.
// Use DefaultConfig() or LoadConfig() to get a populated value.
//
// Example:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.DialTimeout = 2 * time.Second
//
//	client := httpclient.New(httpclient.WithConfig(cfg))
type Config struct {
	// DialTimeout is the maximum time to wait for a TCP connection.
	//
	// Default: 5s
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`

	// KeepAlive specifies the TCP keep-alive probe interval.
	//
	// Default: 30s
	KeepAlive time.Duration `envconfig:"KEEP_ALIVE" default:"30s"`

	// TLSHandshakeTimeout is the maximum time to wait for a TLS handshake.
	//
	// Default: 10s
	TLSHandshakeTimeout time.Duration `envconfig:"TLS_HANDSHAKE_TIMEOUT" default:"10s"`

	// IdleConnTimeout is how long an idle connection stays open.
	//
	// Default: 90s
	IdleConnTimeout time.Duration `envconfig:"IDLE_CONN_TIMEOUT" default:"90s"`

	// DownloadStallTimeout fails a download that receives no bytes for this
	// long. Zero disables the check.
	//
	// Default: 30s
	DownloadStallTimeout time.Duration `envconfig:"DOWNLOAD_STALL_TIMEOUT" default:"30s"`

	// DisableCompression disables the "Accept-Encoding: gzip" header.
	//
	// Default: false
	DisableCompression bool `envconfig:"DISABLE_COMPRESSION" default:"false"`

	// ForceHTTP2 forces an HTTP/2 attempt when a custom dialer is used.
	//
	// Default: true
	ForceHTTP2 bool `envconfig:"FORCE_HTTP2" default:"true"`

	// UserAgent is sent on every request that does not set one.
	//
	// Default: "netrequest/1.0"
	UserAgent string `envconfig:"USER_AGENT" default:"netrequest/1.0"`
}

// DefaultConfig returns the configuration used when no WithConfig option is given.
func DefaultConfig() Config {
	return Config{
		DialTimeout:          5 * time.Second,
		KeepAlive:            30 * time.Second,
		TLSHandshakeTimeout:  10 * time.Second,
		IdleConnTimeout:      90 * time.Second,
		DownloadStallTimeout: DefaultDownloadStallTimeout,
		DisableCompression:   false,
		ForceHTTP2:           true,
		UserAgent:            "netrequest/1.0",
	}
}

// LoadConfig reads Config from environment variables. With prefix
// "NETREQUEST" the dial timeout is read from NETREQUEST_DIAL_TIMEOUT;
// unset variables keep the DefaultConfig values.
//
// Example:
//
//	cfg, err := httpclient.LoadConfig("NETREQUEST")
//	if err != nil {
//	    return err
//	}
//	client := httpclient.New(httpclient.WithConfig(cfg))
func LoadConfig(prefix string) (Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading httpclient config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// Internal Configuration
// =============================================================================

// internalConfig holds everything a Client is built from.
type internalConfig struct {
	httpConfig Config

	// TracerProvider and MeterProvider default to the otel globals.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	Tracer  trace.Tracer
	Meter   metric.Meter
	Metrics *metrics

	// ServiceName is added as "http.client.name" on spans and metrics.
	ServiceName string

	TLSConfig            *tls.Config
	ProxyURL             *url.URL
	ProxyFromEnvironment bool

	// Logger receives failure diagnostics and, with Debug, request and
	// response lines.
	Logger zerolog.Logger
	Debug  bool

	// Doer replaces the whole transport chain when set.
	Doer Doer

	// MockTransport replaces the base transport under instrumentation.
	MockTransport *MockTransport

	Observers []Observer
}

// newConfig creates a new internal config with defaults and applies options.
func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		httpConfig:           DefaultConfig(),
		TracerProvider:       otel.GetTracerProvider(),
		MeterProvider:        otel.GetMeterProvider(),
		ProxyFromEnvironment: true,
		Logger:               zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Instruments stay nil on failure; recording is nil-safe.
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// buildTransport creates an http.Transport from the configuration.
func (cfg *internalConfig) buildTransport() *http.Transport {
	hc := cfg.httpConfig

	dialer := &net.Dialer{
		Timeout:   hc.DialTimeout,
		KeepAlive: hc.KeepAlive,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: hc.TLSHandshakeTimeout,
		IdleConnTimeout:     hc.IdleConnTimeout,
		DisableCompression:  hc.DisableCompression,
		ForceAttemptHTTP2:   hc.ForceHTTP2,
		TLSClientConfig:     cfg.TLSConfig,
	}

	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	} else if cfg.ProxyFromEnvironment {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return transport
}

// baseAttributes returns common attributes for all spans and metrics.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 1)
	if cfg.ServiceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.ServiceName))
	}
	return attrs
}

// =============================================================================
// Options - Functional Options for Client Configuration
// =============================================================================

// Option configures the Client.
type Option func(*internalConfig)

// WithConfig sets the transport engine configuration.
//
// Example:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.DownloadStallTimeout = time.Minute
//	client := httpclient.New(httpclient.WithConfig(cfg))
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) {
		cfg.httpConfig = c
	}
}

// WithLogger injects the zerolog logger used for diagnostics.
// The default logger discards everything.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	client := httpclient.New(httpclient.WithLogger(logger))
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = logger
	}
}

// WithDebug logs every request and response at debug level, including an
// equivalent cURL command for the request.
func WithDebug(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.Debug = enabled
	}
}

// WithUserAgent overrides Config.UserAgent. Requests whose headers set
// User-Agent keep their own value.
func WithUserAgent(ua string) Option {
	return func(cfg *internalConfig) {
		cfg.httpConfig.UserAgent = ua
	}
}

// WithServiceName sets an identifier for this client in traces and metrics,
// added as the "http.client.name" attribute.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithTracerProvider sets a custom OpenTelemetry TracerProvider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom OpenTelemetry MeterProvider.
// If not called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		cfg.MeterProvider = mp
	}
}

// WithTLSConfig sets a custom TLS configuration on the default transport.
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(cfg *internalConfig) {
		cfg.TLSConfig = tlsCfg
	}
}

// WithProxyURL routes requests through a specific proxy instead of the
// HTTP_PROXY / HTTPS_PROXY environment variables.
func WithProxyURL(proxyURL *url.URL) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyURL = proxyURL
		cfg.ProxyFromEnvironment = false
	}
}

// WithDoer replaces the transport engine entirely. Requests are handed to d
// as-is; no instrumentation is added around it.
//
// Example:
//
//	client := httpclient.New(httpclient.WithDoer(&http.Client{}))
func WithDoer(d Doer) Option {
	return func(cfg *internalConfig) {
		cfg.Doer = d
	}
}

// WithMockTransport swaps the network transport for mock, keeping the
// instrumentation around it.
func WithMockTransport(mock *MockTransport) Option {
	return func(cfg *internalConfig) {
		cfg.MockTransport = mock
	}
}

// WithObserver registers an Observer notified once per completed call.
// It may be given multiple times.
func WithObserver(o Observer) Option {
	return func(cfg *internalConfig) {
		cfg.Observers = append(cfg.Observers, o)
	}
}
