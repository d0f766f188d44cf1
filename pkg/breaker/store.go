package breaker

import (
	"context"
	"sync"
)

// StateStore persists breaker state. Implementations must be safe for
// concurrent use.
type StateStore interface {
	// Load returns the current snapshot, or a default healthy snapshot
	// when none has been stored yet.
	Load(ctx context.Context) (Snapshot, error)

	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap Snapshot) error
}

// MemoryStore keeps breaker state in process memory. It is the default store
// and suits single-process deployments.
type MemoryStore struct {
	mu   sync.Mutex
	snap Snapshot
	set  bool
}

// NewMemoryStore creates an in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements StateStore.
func (m *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return defaultSnapshot(), nil
	}
	return m.snap, nil
}

// Save implements StateStore.
func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.set = true
	return nil
}
