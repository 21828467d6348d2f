package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists checkpoints in Redis for multi-node deployments.
// Each checkpoint is stored under <prefix><thread>:<id>, with a per-thread
// sorted set (scored by step) serving as the ordered index.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all checkpoint keys (default:
	// "agentgraph:checkpoint:").
	Prefix string
	// TTL is the checkpoint expiry duration (0 = never expire).
	TTL time.Duration
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client. This is useful for
// testing with miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "agentgraph:checkpoint:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisStore) checkpointKey(threadID, checkpointID string) string {
	return r.prefix + threadID + ":" + checkpointID
}

func (r *RedisStore) threadIndexKey(threadID string) string {
	return r.prefix + "index:" + threadID
}

func (r *RedisStore) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Put saves a checkpoint and adds it to the thread index.
func (r *RedisStore) Put(ctx context.Context, cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	if r.isClosed() {
		return ErrStoreClosed
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.checkpointKey(cp.ThreadID, cp.ID), data, r.ttl)
	pipe.ZAdd(ctx, r.threadIndexKey(cp.ThreadID), redis.Z{
		Score:  float64(cp.Step),
		Member: cp.ID,
	})
	if r.ttl > 0 {
		pipe.Expire(ctx, r.threadIndexKey(cp.ThreadID), r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Latest returns the thread's most recent checkpoint.
func (r *RedisStore) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	if err := ValidateID(threadID); err != nil {
		return nil, err
	}
	if r.isClosed() {
		return nil, ErrStoreClosed
	}

	ids, err := r.client.ZRevRange(ctx, r.threadIndexKey(threadID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("query thread index: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, threadID, ids[0])
}

// Get returns one checkpoint by ID.
func (r *RedisStore) Get(ctx context.Context, threadID, checkpointID string) (*Checkpoint, error) {
	if err := ValidateID(threadID); err != nil {
		return nil, err
	}
	if err := ValidateID(checkpointID); err != nil {
		return nil, err
	}
	if r.isClosed() {
		return nil, ErrStoreClosed
	}

	data, err := r.client.Get(ctx, r.checkpointKey(threadID, checkpointID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// List returns the thread's checkpoints ordered oldest first.
func (r *RedisStore) List(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	if err := ValidateID(threadID); err != nil {
		return nil, err
	}
	if r.isClosed() {
		return nil, ErrStoreClosed
	}

	ids, err := r.client.ZRange(ctx, r.threadIndexKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("query thread index: %w", err)
	}

	out := make([]*Checkpoint, 0, len(ids))
	for _, id := range ids {
		cp, err := r.Get(ctx, threadID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Checkpoint expired, drop it from the index.
				r.client.ZRem(ctx, r.threadIndexKey(threadID), id)
				continue
			}
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// DeleteThread removes every checkpoint of a thread and its index.
func (r *RedisStore) DeleteThread(ctx context.Context, threadID string) error {
	if err := ValidateID(threadID); err != nil {
		return err
	}
	if r.isClosed() {
		return ErrStoreClosed
	}

	ids, err := r.client.ZRange(ctx, r.threadIndexKey(threadID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("query thread index: %w", err)
	}

	pipe := r.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, r.checkpointKey(threadID, id))
	}
	pipe.Del(ctx, r.threadIndexKey(threadID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}

// Ping checks if the Redis connection is alive.
func (r *RedisStore) Ping(ctx context.Context) error {
	if r.isClosed() {
		return ErrStoreClosed
	}
	return r.client.Ping(ctx).Err()
}
