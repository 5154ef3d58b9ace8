package bus

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failed Result.
type ErrorKind string

const (
	ErrNone              ErrorKind = ""
	ErrRecipientNotFound ErrorKind = "recipient_not_found"
	ErrWorkerFault       ErrorKind = "worker_fault"
	ErrTimeout           ErrorKind = "timeout"
	ErrCanceled          ErrorKind = "canceled"
)

// Meta is filled by the dispatcher on every Result.
type Meta struct {
	Elapsed time.Duration
	Worker  string
}

// Result is what a worker returns for an envelope. When OK is true Data
// holds the payload; otherwise Err and Detail describe the failure.
type Result struct {
	OK     bool
	Data   any
	Err    ErrorKind
	Detail string
	Meta   Meta
}

// OK builds a successful result.
func OK(data any) Result {
	return Result{OK: true, Data: data}
}

// Fail builds a failed result.
func Fail(kind ErrorKind, format string, args ...any) Result {
	return Result{Err: kind, Detail: fmt.Sprintf(format, args...)}
}

// Error renders a failed result for logs and improvement notes.
func (r Result) Error() string {
	if r.OK {
		return ""
	}
	if r.Detail == "" {
		return string(r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Err, r.Detail)
}

func contextFailure(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrCanceled
}
