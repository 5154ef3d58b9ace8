package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// MockResponse is a canned reply for MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockResponder computes a reply from the request. It is consulted when
// the FIFO queue is empty.
type MockResponder func(ctx context.Context, req Request) MockResponse

// MockProvider is a deterministic Provider for tests. It serves queued
// replies first, then the responder, and records every request. Replies
// are validated against the request schema like a real vendor's.
type MockProvider struct {
	mu        sync.Mutex
	queue     []MockResponse
	responder MockResponder
	calls     []Request
}

// NewMockProvider returns a provider that serves responses in order.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{queue: responses}
}

// NewMockResponder returns a provider that answers every call with fn.
// Tests that share one provider across workers route on the schema name.
func NewMockResponder(fn MockResponder) *MockProvider {
	return &MockProvider{responder: fn}
}

func (m *MockProvider) next(ctx context.Context, req Request) (MockResponse, bool) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	if len(m.queue) > 0 {
		r := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return r, true
	}
	fn := m.responder
	m.mu.Unlock()
	if fn == nil {
		return MockResponse{}, false
	}
	return fn(ctx, req), true
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	r, ok := m.next(ctx, req)
	if !ok {
		return nil, Unavailable(ProviderMock, errors.New("no mock response queued"))
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if err := req.Schema.Validate(r.Content); err != nil {
		return nil, err
	}
	return &Response{Content: r.Content, Usage: r.Usage, Model: ProviderMock, StopReason: StopEnd}, nil
}

func (m *MockProvider) ModelID() string { return ProviderMock }

// Enqueue appends replies to the queue.
func (m *MockProvider) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

// Calls returns a copy of every recorded request.
func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsFor returns the recorded requests whose schema has the given name.
func (m *MockProvider) CallsFor(schema string) []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Request
	for _, c := range m.calls {
		if c.Schema != nil && c.Schema.Name == schema {
			out = append(out, c)
		}
	}
	return out
}
