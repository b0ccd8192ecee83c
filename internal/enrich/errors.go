package enrich

import (
	"context"
	"errors"
)

// Typed failure kinds for signal API lookups. The four kinds drive the
// partial-failure policy: not-found and forbidden are terminal (mark
// unknown immediately), rate-limited and transient get one retry before
// degrading to unknown.
var (
	ErrNotFound    = errors.New("repository not found")
	ErrForbidden   = errors.New("repository access forbidden")
	ErrRateLimited = errors.New("signal api rate limited")
	ErrTransient   = errors.New("transient signal api failure")
)

// Error kind strings as recorded in outcomes, logs, and metrics.
const (
	KindNotFound    = "not_found"
	KindForbidden   = "forbidden"
	KindRateLimited = "rate_limited"
	KindTransient   = "transient"
	KindDeadline    = "deadline"
)

// Kind classifies a lookup error into its outcome string.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindDeadline
	default:
		return KindTransient
	}
}

// retryable reports whether a failure is worth one more budgeted attempt.
func retryable(err error) bool {
	switch Kind(err) {
	case KindRateLimited, KindTransient:
		return true
	}
	return false
}
