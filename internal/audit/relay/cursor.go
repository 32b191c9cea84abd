package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	id "quantumtrust/pkg/domain"
)

const DefaultCursorKey = "quantumtrust:audit:relay:cursor"

// RedisCursor keeps the relay position in a single Redis key so that it
// survives restarts and is shared by every instance.
type RedisCursor struct {
	client redis.Cmdable
	key    string
}

func NewRedisCursor(client redis.Cmdable, key string) *RedisCursor {
	if key == "" {
		key = DefaultCursorKey
	}
	return &RedisCursor{client: client, key: key}
}

func (c *RedisCursor) Load(ctx context.Context) (id.AuditEntryID, error) {
	raw, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", c.key, err)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt relay cursor %q: %w", raw, err)
	}
	return id.AuditEntryID(v), nil
}

func (c *RedisCursor) Save(ctx context.Context, last id.AuditEntryID) error {
	if err := c.client.Set(ctx, c.key, last.String(), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}

// MemoryCursor is a process-local cursor for tests and single-node setups.
type MemoryCursor struct {
	mu   sync.Mutex
	last id.AuditEntryID
}

func (c *MemoryCursor) Load(context.Context) (id.AuditEntryID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, nil
}

func (c *MemoryCursor) Save(_ context.Context, last id.AuditEntryID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = last
	return nil
}
