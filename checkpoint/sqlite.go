package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agentgraph-dev/agentgraph/state"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	thread_id  TEXT NOT NULL,
	id         TEXT NOT NULL,
	step       INTEGER NOT NULL,
	state      TEXT NOT NULL,
	next_nodes TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (thread_id, id)
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_thread_step
	ON checkpoints (thread_id, step, created_at);
`

// SQLiteStore persists checkpoints in a SQLite database. It uses the pure-Go
// driver, so no cgo is required.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex

	closed bool
}

// NewSQLiteStore opens (or creates) the database at path and prepares the
// checkpoint schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	dsn := path
	if path != ":memory:" {
		// WAL mode allows concurrent readers during writes.
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put saves a checkpoint, upserting on (thread_id, id).
func (s *SQLiteStore) Put(ctx context.Context, cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	nextJSON, err := json.Marshal(cp.NextNodes)
	if err != nil {
		return fmt.Errorf("marshal next nodes: %w", err)
	}
	if cp.NextNodes == nil {
		nextJSON = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, id, step, state, next_nodes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (thread_id, id) DO UPDATE SET
			step = excluded.step,
			state = excluded.state,
			next_nodes = excluded.next_nodes,
			created_at = excluded.created_at`,
		cp.ThreadID, cp.ID, cp.Step, string(stateJSON), string(nextJSON), cp.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Latest returns the thread's most recent checkpoint.
func (s *SQLiteStore) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	if err := ValidateID(threadID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT thread_id, id, step, state, next_nodes, created_at
		FROM checkpoints
		WHERE thread_id = ?
		ORDER BY step DESC, created_at DESC
		LIMIT 1`,
		threadID,
	)
	return scanCheckpoint(row)
}

// Get returns one checkpoint by ID.
func (s *SQLiteStore) Get(ctx context.Context, threadID, checkpointID string) (*Checkpoint, error) {
	if err := ValidateID(threadID); err != nil {
		return nil, err
	}
	if err := ValidateID(checkpointID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT thread_id, id, step, state, next_nodes, created_at
		FROM checkpoints
		WHERE thread_id = ? AND id = ?`,
		threadID, checkpointID,
	)
	return scanCheckpoint(row)
}

// List returns the thread's checkpoints ordered oldest first.
func (s *SQLiteStore) List(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	if err := ValidateID(threadID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT thread_id, id, step, state, next_nodes, created_at
		FROM checkpoints
		WHERE thread_id = ?
		ORDER BY step ASC, created_at ASC`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	if out == nil {
		out = []*Checkpoint{}
	}
	return out, nil
}

// DeleteThread removes every checkpoint of a thread.
func (s *SQLiteStore) DeleteThread(ctx context.Context, threadID string) error {
	if err := ValidateID(threadID); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*Checkpoint, error) {
	var (
		cp        Checkpoint
		stateJSON string
		nextJSON  string
		createdAt time.Time
	)
	err := row.Scan(&cp.ThreadID, &cp.ID, &cp.Step, &stateJSON, &nextJSON, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan checkpoint: %w", err)
	}

	cp.State = state.State{}
	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if err := json.Unmarshal([]byte(nextJSON), &cp.NextNodes); err != nil {
		return nil, fmt.Errorf("parse next nodes: %w", err)
	}
	cp.CreatedAt = createdAt
	return &cp, nil
}
