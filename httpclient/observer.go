package httpclient

import "time"

// CallRecord describes one completed Client call.
type CallRecord struct {
	// Op is the operation name, e.g. OpRequestJSON.
	Op string

	// CallID is the per-call correlation id also found in logs and spans.
	CallID string

	// Kind is zero on success.
	Kind Kind

	// Reason is the transport failure reason, empty otherwise.
	Reason string

	// StatusCode is the status of the response received, 0 when none was.
	// Unlike Error, it is set for KindJSONDecode failures.
	StatusCode int

	// Bytes is the size of the successful payload.
	Bytes int

	// Duration spans validation to outcome.
	Duration time.Duration
}

// Outcome returns "success" or the failure Kind name.
func (r CallRecord) Outcome() string {
	if r.Kind == 0 {
		return "success"
	}
	return r.Kind.String()
}

// Observer is notified once per completed call, after the outcome is
// decided and before it is returned to the caller. Implementations must be
// safe for concurrent use and must not block.
type Observer interface {
	ObserveCall(CallRecord)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(CallRecord)

// ObserveCall implements Observer.
func (f ObserverFunc) ObserveCall(r CallRecord) {
	f(r)
}
