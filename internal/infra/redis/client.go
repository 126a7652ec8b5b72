package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/replikit/internal/core/domain"
	"github.com/vietddude/replikit/internal/metrics"
)

// DefaultTTL matches how long the API keeps prediction outputs.
const DefaultTTL = time.Hour

// Client caches prediction snapshots and indexes the pending ones.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	TTL      time.Duration `yaml:"ttl"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newClient(rdb, cfg.TTL), nil
}

func newClient(rdb *redis.Client, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Client{rdb: rdb, ttl: ttl}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
func snapshotKey(id string) string {
	return fmt.Sprintf("prediction:%s", id)
}

const pendingKey = "predictions:pending"

// Record caches s and keeps the pending index in step with its status.
func (c *Client) Record(ctx context.Context, s domain.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", s.ID, err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, snapshotKey(s.ID), payload, c.ttl)
	if s.Status.IsTerminated() {
		pipe.ZRem(ctx, pendingKey, s.ID)
	} else {
		pipe.ZAdd(ctx, pendingKey, redis.Z{Score: float64(s.UpdatedAt.Unix()), Member: s.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache snapshot %s: %w", s.ID, err)
	}

	metrics.SnapshotsStored.WithLabelValues("redis").Inc()
	return nil
}

// Lookup returns the cached snapshot of id. found is false on a miss.
func (c *Client) Lookup(ctx context.Context, id string) (s *domain.Snapshot, found bool, err error) {
	raw, err := c.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get failed: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, fmt.Errorf("decode cached snapshot %s: %w", id, err)
	}
	return &snap, true, nil
}

// PendingIDs returns IDs of non-terminal predictions, oldest first.
// limit <= 0 returns all of them.
func (c *Client) PendingIDs(ctx context.Context, limit int) ([]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := c.rdb.ZRange(ctx, pendingKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	return ids, nil
}

// Forget drops id from the cache and the pending index.
func (c *Client) Forget(ctx context.Context, id string) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, snapshotKey(id))
	pipe.ZRem(ctx, pendingKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("forget %s: %w", id, err)
	}
	return nil
}
