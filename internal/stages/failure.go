package stages

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds recorded in document history and used by the engine's
// retry policy.
const (
	KindTimeout       = "timeout"
	KindBackend       = "backend_unavailable"
	KindRejected      = "backend_rejected"
	KindBadResponse   = "bad_response"
	KindMissingInput  = "missing_input"
	KindPayloadLost   = "payload_missing"
	KindConflict      = "version_conflict"
	KindStale         = "stale_execution"
	KindInternal      = "internal"
)

// Failure is a stage executor failure. Retryable failures are retried by
// the engine with exponential backoff; non-retryable failures move the
// document to the failed stage immediately.
type Failure struct {
	Kind      string
	Retryable bool
	Err       error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure constructs a Failure wrapping err.
func NewFailure(kind string, retryable bool, err error) *Failure {
	return &Failure{Kind: kind, Retryable: retryable, Err: err}
}

// AsFailure normalizes any executor error into a Failure. Context
// deadline and cancellation map to a retryable timeout; unrecognized
// errors are treated as non-retryable internal failures.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Failure{Kind: KindTimeout, Retryable: true, Err: err}
	}

	return &Failure{Kind: KindInternal, Retryable: false, Err: err}
}
