package bus

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultBroadcastLimit bounds concurrent deliveries in Broadcast.
const DefaultBroadcastLimit = 8

// Dispatcher routes envelopes to registered workers.
type Dispatcher struct {
	registry       *Registry
	history        *History
	broadcastLimit int
	log            zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHistoryCap sets the number of envelopes retained.
func WithHistoryCap(n int) Option {
	return func(d *Dispatcher) { d.history = NewHistory(n) }
}

// WithBroadcastLimit sets the fan-out limit for Broadcast.
func WithBroadcastLimit(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.broadcastLimit = n
		}
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:       registry,
		history:        NewHistory(DefaultHistoryCap),
		broadcastLimit: DefaultBroadcastLimit,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher routes through.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Send delivers payload to the worker named to and waits for its Result.
// It never blocks past ctx: when ctx ends first the Result reports timeout
// or canceled and the worker's eventual reply is discarded.
func (d *Dispatcher) Send(ctx context.Context, from, to string, payload any, kind Kind, priority Priority) Result {
	start := time.Now()
	finish := func(r Result) Result {
		r.Meta = Meta{Elapsed: time.Since(start), Worker: to}
		return r
	}

	e, ok := d.registry.lookup(to)
	if !ok {
		d.log.Debug().Str("from", from).Str("to", to).Msg("recipient not found")
		return finish(Fail(ErrRecipientNotFound, "no worker registered as %q", to))
	}

	env := newEnvelope(from, to, payload, kind, priority)
	d.history.Append(env)

	if err := ctx.Err(); err != nil {
		return finish(Fail(contextFailure(err), "%v", err))
	}

	done := make(chan Result, 1)
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Add(-1)
		defer func() {
			if p := recover(); p != nil {
				d.log.Error().
					Str("worker", to).
					Str("envelope", env.ID.String()).
					Interface("panic", p).
					Str("stack", string(debug.Stack())).
					Msg("worker panic")
				done <- Fail(ErrWorkerFault, "panic: %v", p)
			}
		}()
		done <- e.worker.Receive(ctx, env)
	}()

	select {
	case r := <-done:
		return finish(r)
	case <-ctx.Done():
		kind := contextFailure(ctx.Err())
		d.log.Debug().Str("worker", to).Str("err", string(kind)).Msg("worker call abandoned")
		return finish(Fail(kind, "%v", ctx.Err()))
	}
}

// Broadcast sends payload to every registered worker except from. Each
// delivery succeeds or fails independently.
func (d *Dispatcher) Broadcast(ctx context.Context, from string, payload any, kind Kind) map[string]Result {
	var (
		mu  sync.Mutex
		out = make(map[string]Result)
		g   errgroup.Group
	)
	g.SetLimit(d.broadcastLimit)

	for _, name := range d.registry.Names() {
		if name == from {
			continue
		}
		g.Go(func() error {
			r := d.Send(ctx, from, name, payload, kind, PriorityMedium)
			mu.Lock()
			out[name] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// History returns the retained envelopes oldest-first.
func (d *Dispatcher) History() []Envelope {
	return d.history.Snapshot()
}
