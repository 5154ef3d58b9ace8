package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// Retry retries rate limits and outages with exponential backoff and
// ±20% jitter. An invalid response is retried once; truncation and
// context errors are returned immediately.
func Retry(cfg RetryConfig) Middleware {
	return func(p Provider) Provider {
		r := &retrier{inner: p, cfg: cfg}
		return &wrapped{inner: p, generate: r.generate}
	}
}

type retrier struct {
	inner Provider
	cfg   RetryConfig
}

func (r *retrier) generate(ctx context.Context, req Request) (*Response, error) {
	attempts := max(r.cfg.MaxAttempts, 1)
	invalidSeen := false

	var lastErr error
	for attempt := range attempts {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		kind, ok := KindOf(err)
		switch {
		case ctx.Err() != nil:
			return nil, err
		case !ok:
			// Plain errors (context, marshal) are not transient.
			return nil, err
		case kind == KindTruncated:
			return nil, err
		case kind == KindInvalidResponse:
			if invalidSeen {
				return nil, err
			}
			invalidSeen = true
		}
		if attempt == attempts-1 {
			break
		}

		wait := r.wait(attempt, err)
		zerolog.Ctx(ctx).Debug().
			Err(err).
			Str("purpose", req.Label()).
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Msg("retrying llm request")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return nil, lastErr
}

// wait honors a rate limit's RetryAfter, otherwise backs off
// InitialWait·Multiplier^attempt capped at MaxWait.
func (r *retrier) wait(attempt int, err error) time.Duration {
	var e *Error
	if errors.As(err, &e) && e.RetryAfter > 0 {
		return e.RetryAfter
	}

	mult := r.cfg.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(r.cfg.InitialWait) * math.Pow(mult, float64(attempt))
	if r.cfg.MaxWait > 0 {
		d = math.Min(d, float64(r.cfg.MaxWait))
	}
	d += d * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(math.Max(d, 0))
}
