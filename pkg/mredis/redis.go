// Package mredis manages the redis connection backing the branch-head
// cache in front of the Muse Hub VCS store.
package mredis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cgcardona/maestro/pkg/mlog"
)

// Connection is a singleton redis client holder.
type Connection struct {
	Addr      string
	Password  string
	DB        int
	Logger    mlog.Logger
	Client    *redis.Client
	Connected bool
}

// Connect opens the client and verifies it with a ping.
func (c *Connection) Connect(ctx context.Context) error {
	logger := c.logger()
	logger.Info("connecting to redis...")

	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("mredis: ping: %w", err)
	}

	c.Client = client
	c.Connected = true

	logger.Info("connected to redis")

	return nil
}

// GetClient returns the client, connecting lazily if necessary.
func (c *Connection) GetClient(ctx context.Context) (*redis.Client, error) {
	if c.Client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.Client, nil
}

func (c *Connection) logger() mlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return &mlog.NoneLogger{}
}

// BranchHeadCache caches repoId/branch -> commitId lookups in front of
// the durable store, invalidated write-through on every branch update.
type BranchHeadCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBranchHeadCache builds a cache over an already-connected client.
func NewBranchHeadCache(client *redis.Client, ttl time.Duration) *BranchHeadCache {
	return &BranchHeadCache{client: client, ttl: ttl}
}

func (b *BranchHeadCache) key(repoID, branch string) string {
	return "branchhead:" + repoID + ":" + branch
}

// Get returns the cached head commit id, or ("", false) on a miss.
func (b *BranchHeadCache) Get(ctx context.Context, repoID, branch string) (string, bool) {
	v, err := b.client.Get(ctx, b.key(repoID, branch)).Result()
	if err != nil {
		return "", false
	}

	return v, true
}

// Set writes the head commit id for repoID/branch.
func (b *BranchHeadCache) Set(ctx context.Context, repoID, branch, commitID string) error {
	return b.client.Set(ctx, b.key(repoID, branch), commitID, b.ttl).Err()
}

// Invalidate drops the cached head, forcing the next Get to miss and the
// caller to re-read the durable store. Called after push and merge move
// a branch head, to keep the cache write-through.
func (b *BranchHeadCache) Invalidate(ctx context.Context, repoID, branch string) error {
	return b.client.Del(ctx, b.key(repoID, branch)).Err()
}
