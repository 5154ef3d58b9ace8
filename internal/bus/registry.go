package bus

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Worker handles envelopes addressed to it. Implementations must honor
// ctx and should return promptly once it is done.
type Worker interface {
	Receive(ctx context.Context, env Envelope) Result
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, env Envelope) Result

func (f WorkerFunc) Receive(ctx context.Context, env Envelope) Result {
	return f(ctx, env)
}

// Status is a point-in-time view of one registered worker.
type Status struct {
	Name       string `json:"name"`
	Busy       bool   `json:"busy"`
	QueueDepth int    `json:"queue_depth"`
}

type entry struct {
	worker   Worker
	inflight atomic.Int64
}

// Registry maps worker names to workers. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]*entry
	log     zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{workers: make(map[string]*entry), log: log}
}

// Register adds w under name, replacing any existing worker.
func (r *Registry) Register(name string, w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.workers[name]; exists {
		r.log.Warn().Str("worker", name).Msg("replacing registered worker")
	}
	r.workers[name] = &entry{worker: w}
}

// Lookup returns the worker registered under name.
func (r *Registry) Lookup(name string) (Worker, bool) {
	e, ok := r.lookup(name)
	if !ok {
		return nil, false
	}
	return e.worker, true
}

func (r *Registry) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.workers[name]
	return e, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.workers))
	for n := range r.workers {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// ListStatuses reports every worker, sorted by name.
func (r *Registry) ListStatuses() []Status {
	r.mu.RLock()
	out := make([]Status, 0, len(r.workers))
	for n, e := range r.workers {
		inflight := int(e.inflight.Load())
		depth := inflight - 1
		if depth < 0 {
			depth = 0
		}
		out = append(out, Status{Name: n, Busy: inflight > 0, QueueDepth: depth})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
