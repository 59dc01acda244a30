package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrDownloadStalled is the cause of a download that received no bytes for
// Config.DownloadStallTimeout. It is reported as KindTransport with
// ReasonTimeout.
var ErrDownloadStalled = errors.New("download stalled")

// progressBuffer is how many samples Download.Progress holds before new
// samples are dropped for a slow consumer.
const progressBuffer = 64

// DownloadOptions are the optional parts of a Download call.
type DownloadOptions struct {
	// Headers are sent with the GET request.
	Headers http.Header

	// OnProgress, when set, receives every progress sample in order on
	// the download goroutine, strictly before the outcome is available.
	OnProgress func(fraction float64)
}

// Download is an in-flight or completed download started by Client.Download.
//
//	dl := client.Download(ctx, "https://cdn.example.com/big.bin", httpclient.DownloadOptions{})
//	for p := range dl.Progress() {
//	    bar.Set(p)
//	}
//	data, err := dl.Wait()
type Download struct {
	progress chan float64
	done     chan struct{}
	body     []byte
	err      error
}

// Progress yields completion fractions in [0, 1], non-decreasing. The
// channel is closed before Done, so ranging over it and then calling Wait
// never blocks on a finished download. Samples are dropped rather than
// delivered late when the consumer falls behind; use
// DownloadOptions.OnProgress to see every sample.
func (d *Download) Progress() <-chan float64 {
	return d.progress
}

// Done is closed once the outcome is available.
func (d *Download) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the download finishes and returns the body or the
// failure, with the same shape as RequestData.
func (d *Download) Wait() ([]byte, error) {
	<-d.done
	return d.body, d.err
}

func (d *Download) finish(body []byte, err error) {
	close(d.progress)
	d.body, d.err = body, err
	close(d.done)
}

func (d *Download) emitter(onProgress func(float64)) func(float64) {
	return func(f float64) {
		if onProgress != nil {
			onProgress(f)
		}
		select {
		case d.progress <- f:
		default:
		}
	}
}

// Download fetches rawURL with GET on its own goroutine and returns at once.
//
// An invalid URL yields a Download that is already finished with a
// KindInvalidURL error, having started nothing. Downloads have no total
// deadline; they fail with ReasonTimeout after Config.DownloadStallTimeout
// without receiving data.
func (c *Client) Download(ctx context.Context, rawURL string, opts DownloadOptions) *Download {
	d := &Download{
		progress: make(chan float64, progressBuffer),
		done:     make(chan struct{}),
	}

	ctx, cl := c.startCall(ctx, OpDownload, rawURL)

	u, err := validateURL(cl.op, rawURL)
	if err != nil {
		c.finishCall(ctx, cl, 0, err)
		d.finish(nil, err)
		return d
	}

	go func() {
		body, err := c.download(ctx, cl, u, opts, d.emitter(opts.OnProgress))
		c.finishCall(ctx, cl, len(body), err)
		d.finish(body, err)
	}()

	return d
}

func (c *Client) download(
	ctx context.Context,
	cl *call,
	u *url.URL,
	opts DownloadOptions,
	emit func(float64),
) ([]byte, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	stall := newStallTimer(c.cfg.httpConfig.DownloadStallTimeout, func() {
		cancel(ErrDownloadStalled)
	})
	defer stall.stop()

	headers := make(http.Header, len(opts.Headers))
	mergeHeaders(headers, opts.Headers)
	desc := &requestDescriptor{url: u, method: http.MethodGet, headers: headers}

	req, err := desc.newRequest(ctx, c.cfg.httpConfig.UserAgent)
	if err != nil {
		return nil, newTransportError(cl.op, cl.rawURL, ReasonRequestEncoding, 0, err)
	}

	resp, err := c.send(cl, req, nil)
	if err != nil {
		return nil, classifyTransportError(cl.op, cl.rawURL, cl.status, stallCause(ctx, err))
	}
	stall.reset()

	if !isSuccess(resp.StatusCode) {
		return classifyResponse(cl.op, cl.rawURL, resp)
	}

	pb := newProgressBody(ctx, resp.Body, resp.ContentLength, stall.reset, emit)
	resp.Body = pb
	body, err := classifyResponse(cl.op, cl.rawURL, resp)
	c.cfg.Metrics.recordDownloadBytes(ctx, pb.bytesRead(), c.cfg.baseAttributes())

	return body, err
}

// stallCause marks err as a stall when the stall timer cancelled ctx.
func stallCause(ctx context.Context, err error) error {
	if err == nil || !errors.Is(context.Cause(ctx), ErrDownloadStalled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDownloadStalled, err)
}

// stallTimer fires once no activity was reported for d. A zero d disables it.
type stallTimer struct {
	d time.Duration
	t *time.Timer
}

func newStallTimer(d time.Duration, onStall func()) *stallTimer {
	if d <= 0 {
		return &stallTimer{}
	}
	return &stallTimer{d: d, t: time.AfterFunc(d, onStall)}
}

func (s *stallTimer) reset() {
	if s.t != nil {
		s.t.Reset(s.d)
	}
}

func (s *stallTimer) stop() {
	if s.t != nil {
		s.t.Stop()
	}
}
