package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore persists checkpoints as JSON files.
// Storage layout:
//
//	<base>/
//	  └── <thread-id>/
//	      └── <checkpoint-id>.json
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
	closed  bool
}

// NewFileStore creates a file-based store rooted at baseDir. If baseDir is
// empty, ~/.agentgraph/checkpoints is used.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".agentgraph", "checkpoints")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &FileStore{baseDir: baseDir}, nil
}

// Put saves a checkpoint under <base>/<thread>/<id>.json.
func (f *FileStore) Put(ctx context.Context, cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStoreClosed
	}

	threadDir := filepath.Join(f.baseDir, cp.ThreadID)
	if err := os.MkdirAll(threadDir, 0700); err != nil {
		return fmt.Errorf("create thread directory: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	path := filepath.Join(threadDir, cp.ID+".json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Latest returns the thread's most recent checkpoint.
func (f *FileStore) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	list, err := f.List(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[len(list)-1], nil
}

// Get returns one checkpoint by ID.
func (f *FileStore) Get(ctx context.Context, threadID, checkpointID string) (*Checkpoint, error) {
	if err := ValidateID(threadID); err != nil {
		return nil, err
	}
	if err := ValidateID(checkpointID); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStoreClosed
	}

	path := filepath.Join(f.baseDir, threadID, checkpointID+".json")
	data, err := os.ReadFile(path) // #nosec G304 - IDs validated against path traversal
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	return &cp, nil
}

// List returns the thread's checkpoints ordered oldest first.
func (f *FileStore) List(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	if err := ValidateID(threadID); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStoreClosed
	}

	threadDir := filepath.Join(f.baseDir, threadID)
	entries, err := os.ReadDir(threadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Checkpoint{}, nil
		}
		return nil, fmt.Errorf("read thread directory: %w", err)
	}

	out := make([]*Checkpoint, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(threadDir, entry.Name())) // #nosec G304 - listing a validated directory
		if err != nil {
			return nil, fmt.Errorf("read checkpoint %s: %w", entry.Name(), err)
		}

		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			return nil, fmt.Errorf("parse checkpoint %s: %w", entry.Name(), err)
		}
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Step != out[j].Step {
			return out[i].Step < out[j].Step
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteThread removes the thread's directory and everything in it.
func (f *FileStore) DeleteThread(ctx context.Context, threadID string) error {
	if err := ValidateID(threadID); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStoreClosed
	}

	if err := os.RemoveAll(filepath.Join(f.baseDir, threadID)); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}

// Close marks the store closed.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}
