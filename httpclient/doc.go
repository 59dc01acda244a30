// Package httpclient provides a single HTTP client facade so application
// code never talks to a transport engine directly.
//
// # Operations
//
// Every call validates its URL first and returns exactly one outcome:
//
//	client := httpclient.New(httpclient.WithServiceName("catalog"))
//
//	// Decoded JSON: map[string]any, []any, string, float64, bool or nil
//	v, err := client.RequestJSON(ctx, "https://api.example.com/items", http.MethodGet,
//	    httpclient.RequestOptions{Params: map[string]any{"page": 2}})
//
//	// Raw bytes
//	data, err := client.RequestData(ctx, "https://api.example.com/export.csv", http.MethodGet,
//	    httpclient.RequestOptions{})
//
//	// Multipart upload, one part per field
//	data, err := client.Upload(ctx, "https://api.example.com/upload",
//	    map[string]string{"file": "/tmp/report.pdf"},
//	    map[string]string{"Authorization": "Bearer " + token})
//
// Downloads run on their own goroutine and report progress:
//
//	dl := client.Download(ctx, "https://cdn.example.com/big.bin", httpclient.DownloadOptions{})
//	for p := range dl.Progress() {
//	    fmt.Printf("\r%3.0f%%", p*100)
//	}
//	data, err := dl.Wait()
//
// # Timeouts
//
// RequestJSON, RequestData and Upload are bounded by RequestTimeout (30s)
// whatever the parameters. Downloads have no total deadline; they fail
// when no bytes arrive for Config.DownloadStallTimeout.
//
// # Parameter Encoding
//
// RequestOptions.Encoding selects how Params are sent:
//
//   - EncodingURL (default): query string for GET, HEAD and DELETE,
//     form body otherwise
//   - EncodingQuery: always the query string
//   - EncodingJSON: JSON object body
//
// Keys are sorted. Slices encode as key[]=v, nested maps as key[sub]=v and
// booleans as 1 or 0.
//
// # Errors
//
// All failures are *Error values. Branch with errors.Is:
//
//	_, err := client.RequestJSON(ctx, url, http.MethodGet, httpclient.RequestOptions{})
//	switch {
//	case errors.Is(err, httpclient.ErrInvalidURL):
//	    // rejected before dispatch
//	case errors.Is(err, httpclient.ErrJSONDecode):
//	    // 2xx body was not JSON
//	case errors.Is(err, httpclient.ErrTransport):
//	    if code, ok := httpclient.StatusCodeOf(err); ok {
//	        // the server answered with a non-2xx status
//	    }
//	}
//
// # Observability
//
// The client emits:
//
// Traces:
//   - netrequest.<Op> span per call, carrying call_id and outcome
//   - HTTP <METHOD> client span per exchange, with W3C trace context
//     injected into the request
//
// Metrics:
//   - netrequest.call.duration (histogram, by operation and outcome)
//   - netrequest.download.bytes (counter)
//   - http.client.request.duration (histogram)
//   - http.client.request.body.size, http.client.response.body.size (histograms)
//   - http.client.active_requests (up-down counter)
//   - http.client.request.error (counter)
//
// Prometheus users can register a PrometheusObserver with WithObserver.
//
// # Logging
//
// Inject a zerolog logger with WithLogger. Failures are logged at debug
// level with call_id, op, kind, reason and status; WithDebug(true) also
// logs each request as a cURL command and each response line.
//
// # Testing
//
// Swap the network for a MockTransport:
//
//	mock := httpclient.NewMockTransport().
//	    StubPath("/items", http.StatusOK, `[{"id":1}]`)
//	client := httpclient.New(httpclient.WithMockTransport(mock))
package httpclient
