package preference

import (
	"context"
	"errors"
	"sync"
)

// ErrEmptyUser is returned when a store is asked about an empty user ID.
var ErrEmptyUser = errors.New("preference: empty user id")

// ApplyResult reports the outcome of Store.Apply. When Applied is false the
// stored count had moved past the expected value and Snapshot holds the
// current stored state.
type ApplyResult struct {
	Applied  bool
	Snapshot Snapshot
}

// Store persists one Snapshot per user.
type Store interface {
	// Get returns the user's snapshot, creating the default record on first
	// access.
	Get(ctx context.Context, userID string) (Snapshot, error)

	// Apply merges delta into the stored snapshot if its ChangeCount still
	// equals expected, incrementing the count by one. It is atomic with
	// respect to other Apply calls for the same user.
	Apply(ctx context.Context, userID string, delta Delta, expected uint64) (ApplyResult, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]Snapshot)}
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, ErrEmptyUser
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(userID), nil
}

func (m *MemoryStore) getLocked(userID string) Snapshot {
	s, ok := m.users[userID]
	if !ok {
		s = Default()
		m.users[userID] = s
	}
	return s
}

func (m *MemoryStore) Apply(ctx context.Context, userID string, delta Delta, expected uint64) (ApplyResult, error) {
	if userID == "" {
		return ApplyResult{}, ErrEmptyUser
	}
	if err := ctx.Err(); err != nil {
		return ApplyResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.getLocked(userID)
	if cur.ChangeCount != expected {
		return ApplyResult{Applied: false, Snapshot: cur}, nil
	}
	next := delta.ApplyTo(cur)
	next.ChangeCount = cur.ChangeCount + 1
	m.users[userID] = next
	return ApplyResult{Applied: true, Snapshot: next}, nil
}
