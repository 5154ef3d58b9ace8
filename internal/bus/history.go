package bus

import "sync"

// DefaultHistoryCap is the number of envelopes retained when no cap is given.
const DefaultHistoryCap = 1000

// History is a fixed-size ring of recent envelopes. When full the oldest
// envelope is overwritten.
type History struct {
	mu    sync.Mutex
	buf   []Envelope
	next  int
	count int
}

// NewHistory creates a ring holding at most capacity envelopes.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{buf: make([]Envelope, capacity)}
}

// Append records env.
func (h *History) Append(env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = env
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// Len returns the number of retained envelopes.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Snapshot returns the retained envelopes oldest-first.
func (h *History) Snapshot() []Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Envelope, 0, h.count)
	start := (h.next - h.count + len(h.buf)) % len(h.buf)
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(start+i)%len(h.buf)])
	}
	return out
}
