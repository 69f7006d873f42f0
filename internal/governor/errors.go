package governor

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies external-call failures for retry and fallback
// decisions.
type FailureKind string

const (
	// FailureTransient covers timeouts and connection errors; retryable.
	FailureTransient FailureKind = "transient"
	// FailureMalformed covers unparseable responses; never retried
	// against the same provider.
	FailureMalformed FailureKind = "malformed"
	// FailureRateLimited means a local or remote rate limit denied the
	// call; callers back off locally, they do not escalate.
	FailureRateLimited FailureKind = "rate_limited"
	// FailureBudget means the run budget refused the call; remaining
	// work is skipped, never crashed.
	FailureBudget FailureKind = "budget_exhausted"
)

// ExternalError is a classified failure from an external collaborator.
type ExternalError struct {
	Kind     FailureKind
	Provider string
	Err      error
}

func (e *ExternalError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

func Transient(provider string, err error) *ExternalError {
	return &ExternalError{Kind: FailureTransient, Provider: provider, Err: err}
}

func Malformed(provider string, err error) *ExternalError {
	return &ExternalError{Kind: FailureMalformed, Provider: provider, Err: err}
}

var (
	ErrRateLimited     = &ExternalError{Kind: FailureRateLimited, Err: errors.New("rate limit window full")}
	ErrBudgetExhausted = &ExternalError{Kind: FailureBudget, Err: errors.New("run budget exhausted")}

	// ErrProvidersExhausted surfaces when every configured provider has
	// been tried and failed. It is never swallowed into an empty success.
	ErrProvidersExhausted = errors.New("all providers exhausted")
)

// KindOf classifies any error. Unclassified errors (raw network
// failures, context deadlines) count as transient.
func KindOf(err error) FailureKind {
	var ee *ExternalError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return FailureTransient
}

// Retryable reports whether the same provider may be retried.
func Retryable(err error) bool {
	switch KindOf(err) {
	case FailureTransient, FailureRateLimited:
		return true
	}
	return false
}

// ClassifyHTTP maps a response status to a failure kind. The second
// return is false for success statuses.
func ClassifyHTTP(status int) (FailureKind, bool) {
	switch {
	case status >= 200 && status < 300:
		return "", false
	case status == http.StatusTooManyRequests:
		return FailureRateLimited, true
	case status == http.StatusRequestTimeout || status >= 500:
		return FailureTransient, true
	default:
		return FailureMalformed, true
	}
}
