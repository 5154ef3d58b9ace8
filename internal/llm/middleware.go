package llm

import (
	"context"
	"time"
)

// Middleware wraps a Provider with extra behavior.
type Middleware func(Provider) Provider

// Chain wraps base so that the first middleware is outermost.
func Chain(base Provider, mws ...Middleware) Provider {
	p := base
	for i := len(mws) - 1; i >= 0; i-- {
		p = mws[i](p)
	}
	return p
}

// wrapped forwards ModelID to the inner provider.
type wrapped struct {
	inner    Provider
	generate func(ctx context.Context, req Request) (*Response, error)
}

func (w *wrapped) Generate(ctx context.Context, req Request) (*Response, error) {
	return w.generate(ctx, req)
}

func (w *wrapped) ModelID() string { return w.inner.ModelID() }

// Timeout bounds each Generate call, retries included when it wraps Retry.
func Timeout(d time.Duration) Middleware {
	return func(p Provider) Provider {
		return &wrapped{inner: p, generate: func(ctx context.Context, req Request) (*Response, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return p.Generate(ctx, req)
		}}
	}
}
