package checkpoint

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps checkpoints in process memory. It is the default store
// for tests and single-process runs; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]*Checkpoint
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]*Checkpoint)}
}

// Put saves a checkpoint, replacing any existing one with the same ID.
func (m *MemoryStore) Put(ctx context.Context, cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	stored, err := cloneCheckpoint(cp)
	if err != nil {
		return err
	}

	list := m.threads[cp.ThreadID]
	for i, existing := range list {
		if existing.ID == cp.ID {
			list[i] = stored
			return nil
		}
	}
	m.threads[cp.ThreadID] = append(list, stored)
	return nil
}

// Latest returns the thread's most recent checkpoint.
func (m *MemoryStore) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	if err := ValidateID(threadID); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	list := m.threads[threadID]
	if len(list) == 0 {
		return nil, ErrNotFound
	}

	latest := list[0]
	for _, cp := range list[1:] {
		if cp.Step > latest.Step || (cp.Step == latest.Step && cp.CreatedAt.After(latest.CreatedAt)) {
			latest = cp
		}
	}
	return cloneCheckpoint(latest)
}

// Get returns one checkpoint by ID.
func (m *MemoryStore) Get(ctx context.Context, threadID, checkpointID string) (*Checkpoint, error) {
	if err := ValidateID(threadID); err != nil {
		return nil, err
	}
	if err := ValidateID(checkpointID); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	for _, cp := range m.threads[threadID] {
		if cp.ID == checkpointID {
			return cloneCheckpoint(cp)
		}
	}
	return nil, ErrNotFound
}

// List returns the thread's checkpoints ordered oldest first.
func (m *MemoryStore) List(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	if err := ValidateID(threadID); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	list := m.threads[threadID]
	out := make([]*Checkpoint, 0, len(list))
	for _, cp := range list {
		clone, err := cloneCheckpoint(cp)
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Step != out[j].Step {
			return out[i].Step < out[j].Step
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteThread removes every checkpoint of a thread.
func (m *MemoryStore) DeleteThread(ctx context.Context, threadID string) error {
	if err := ValidateID(threadID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.threads, threadID)
	return nil
}

// Close marks the store closed. Further operations fail with ErrStoreClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.threads = nil
	return nil
}

// cloneCheckpoint deep-copies a checkpoint so callers and the store never
// share state maps.
func cloneCheckpoint(cp *Checkpoint) (*Checkpoint, error) {
	stateCopy, err := cp.State.Clone()
	if err != nil {
		return nil, err
	}
	out := *cp
	out.State = stateCopy
	if cp.NextNodes != nil {
		out.NextNodes = append([]string(nil), cp.NextNodes...)
	}
	return &out, nil
}
