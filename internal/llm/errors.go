package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a provider failure.
type Kind string

const (
	// KindRateLimited is a 429 from the vendor.
	KindRateLimited Kind = "rate_limited"
	// KindUnavailable covers outages, network errors and missing providers.
	KindUnavailable Kind = "unavailable"
	// KindInvalidResponse means the reply was not the JSON we asked for.
	KindInvalidResponse Kind = "invalid_response"
	// KindTruncated means generation stopped at the token limit.
	KindTruncated Kind = "truncated"
)

// Error is returned by every Provider in this package for failures that
// are not context errors.
type Error struct {
	Kind Kind

	// Provider names the backend that failed, when known.
	Provider string

	// RetryAfter is the server's hint for rate limits. Zero means none.
	RetryAfter time.Duration

	// Content holds the offending reply for invalid or truncated responses.
	Content json.RawMessage

	Err error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindRateLimited:
		msg = "rate limited"
		if e.RetryAfter > 0 {
			msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
		}
	case KindUnavailable:
		msg = "provider unavailable"
	case KindInvalidResponse:
		msg = "invalid response"
	case KindTruncated:
		msg = "response truncated at max tokens"
	default:
		msg = string(e.Kind)
	}
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "llm: " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// Unavailable wraps err as a KindUnavailable error.
func Unavailable(provider string, err error) *Error {
	return &Error{Kind: KindUnavailable, Provider: provider, Err: err}
}

func invalidResponse(content json.RawMessage, err error) *Error {
	return &Error{Kind: KindInvalidResponse, Content: content, Err: err}
}

// classifyStatus maps an HTTP status from a vendor SDK error.
func classifyStatus(provider string, status int, err error) *Error {
	if status == http.StatusTooManyRequests {
		return &Error{Kind: KindRateLimited, Provider: provider, Err: err}
	}
	return Unavailable(provider, err)
}
