package httpclient

import (
	"context"
	"io"
	"sync/atomic"
)

// progressBody wraps a download response body to:
// 1. Count the bytes read
// 2. Report the completed fraction after each read that advances it
// 3. Report 1.0 at EOF when the length was unknown
// 4. Keep the stall timer alive while data flows
type progressBody struct {
	ctx    context.Context
	body   io.ReadCloser
	total  int64
	read   atomic.Int64
	last   float64
	onRead func()
	emit   func(float64)
}

// newProgressBody wraps body. total is the expected length, or -1 if unknown.
func newProgressBody(
	ctx context.Context,
	body io.ReadCloser,
	total int64,
	onRead func(),
	emit func(float64),
) *progressBody {
	return &progressBody{
		ctx:    ctx,
		body:   body,
		total:  total,
		onRead: onRead,
		emit:   emit,
	}
}

// Read reads from the underlying body, reporting progress.
func (p *progressBody) Read(b []byte) (int, error) {
	n, err := p.body.Read(b)
	if n > 0 {
		read := p.read.Add(int64(n))
		p.onRead()
		if p.total > 0 {
			p.report(float64(read) / float64(p.total))
		}
	}

	switch {
	case err == io.EOF:
		p.report(1)
	case err != nil:
		err = stallCause(p.ctx, err)
	}

	return n, err
}

// Close closes the underlying body.
func (p *progressBody) Close() error {
	return p.body.Close()
}

func (p *progressBody) bytesRead() int64 {
	return p.read.Load()
}

// report emits f, clamped to 1, only when it advances past the last sample.
func (p *progressBody) report(f float64) {
	f = min(f, 1)
	if f <= p.last {
		return
	}
	p.last = f
	p.emit(f)
}
