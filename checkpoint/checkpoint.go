// Package checkpoint persists graph state between supersteps so runs can be
// resumed, inspected, and replayed by thread ID. Backends cover in-memory,
// file, SQLite, and Redis storage behind one Store interface.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/agentgraph-dev/agentgraph/state"
)

// Common errors for checkpoint stores.
var (
	// ErrNotFound is returned when no checkpoint matches the query.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("checkpoint store is closed")
	// ErrInvalidID is returned for thread or checkpoint IDs with unsafe
	// characters.
	ErrInvalidID = errors.New("invalid identifier: only letters, digits, hyphen and underscore are allowed")
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID checks that an identifier is safe to embed in file paths and
// storage keys.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("identifier cannot be empty")
	}
	if !idPattern.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

// Checkpoint is a snapshot of graph state after one superstep.
type Checkpoint struct {
	// ID uniquely identifies the checkpoint within its thread.
	ID string `json:"id"`
	// ThreadID groups the checkpoints of one conversation or run series.
	ThreadID string `json:"thread_id"`
	// Step is the superstep number the snapshot was taken after, starting
	// at 1.
	Step int `json:"step"`
	// State is the full graph state at that point.
	State state.State `json:"state"`
	// NextNodes are the nodes scheduled for the following superstep. Empty
	// means the run completed.
	NextNodes []string `json:"next_nodes,omitempty"`
	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the checkpoint's identifiers and step number.
func (c *Checkpoint) Validate() error {
	if err := ValidateID(c.ID); err != nil {
		return fmt.Errorf("checkpoint ID: %w", err)
	}
	if err := ValidateID(c.ThreadID); err != nil {
		return fmt.Errorf("thread ID: %w", err)
	}
	if c.Step < 0 {
		return fmt.Errorf("step must be non-negative, got %d", c.Step)
	}
	return nil
}

// Store persists checkpoints. Implementations must be safe for concurrent
// use.
type Store interface {
	// Put saves a checkpoint. Saving an existing (thread, checkpoint) pair
	// overwrites it.
	Put(ctx context.Context, cp *Checkpoint) error

	// Latest returns the most recent checkpoint for a thread, by step then
	// creation time. Returns ErrNotFound when the thread has none.
	Latest(ctx context.Context, threadID string) (*Checkpoint, error)

	// Get returns one checkpoint by thread and checkpoint ID. Returns
	// ErrNotFound when it does not exist.
	Get(ctx context.Context, threadID, checkpointID string) (*Checkpoint, error)

	// List returns a thread's checkpoints ordered oldest first. An empty
	// thread yields an empty slice, not an error.
	List(ctx context.Context, threadID string) ([]*Checkpoint, error)

	// DeleteThread removes every checkpoint of a thread. Deleting an
	// unknown thread is not an error.
	DeleteThread(ctx context.Context, threadID string) error

	// Close releases resources held by the store.
	Close() error
}
