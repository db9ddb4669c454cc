package raid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// DedupeProvider guards against handling the same reaction twice when the
// transport redelivers it. Deduplicate returns false if key was already seen
// within ttl.
type DedupeProvider interface {
	Deduplicate(ctx context.Context, key string, ttl time.Duration) bool
	Release(ctx context.Context, key string)
}

// ReactionDedupeKey identifies one reaction add or remove.
func ReactionDedupeKey(event ReactionEvent) string {
	op := "add"
	if event.Removed {
		op = "remove"
	}

	return fmt.Sprintf("reaction:%s:%d:%d:%s", op, event.MessageID, event.UserID, event.Emoji.Key())
}

type noopDedupeProvider struct{}

func NewNoopDedupeProvider() DedupeProvider {
	return noopDedupeProvider{}
}

func (noopDedupeProvider) Deduplicate(context.Context, string, time.Duration) bool {
	return true
}

func (noopDedupeProvider) Release(context.Context, string) {}

// InMemoryDedupeProvider keeps keys with their expiry in a map. Expired keys
// are dropped by Cleanup, which Run calls on a ticker.
type InMemoryDedupeProvider struct {
	keys map[string]time.Time
	mu   sync.Mutex

	now func() time.Time
}

func NewInMemoryDedupeProvider() *InMemoryDedupeProvider {
	return &InMemoryDedupeProvider{
		keys: make(map[string]time.Time),
		now:  time.Now,
	}
}

// WithClock replaces the clock used for expiry.
func (d *InMemoryDedupeProvider) WithClock(now func() time.Time) *InMemoryDedupeProvider {
	d.now = now

	return d
}

func (d *InMemoryDedupeProvider) Deduplicate(_ context.Context, key string, ttl time.Duration) bool {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if expiration, exists := d.keys[key]; exists && expiration.After(now) {
		return false
	}

	d.keys[key] = now.Add(ttl)

	return true
}

func (d *InMemoryDedupeProvider) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.keys, key)
}

// Cleanup removes expired keys and returns how many were removed.
func (d *InMemoryDedupeProvider) Cleanup() int {
	now := d.now()
	removed := 0

	d.mu.Lock()
	defer d.mu.Unlock()

	for key, expiration := range d.keys {
		if !expiration.After(now) {
			delete(d.keys, key)
			removed++
		}
	}

	return removed
}

func (d *InMemoryDedupeProvider) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.keys)
}

// Run cleans up every interval until ctx is done.
func (d *InMemoryDedupeProvider) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Cleanup()
		}
	}
}

// RedisDedupeProvider shares dedupe keys between several daemons through SETNX.
// If Redis cannot be reached the reaction is let through.
type RedisDedupeProvider struct {
	client *redis.Client
	prefix string
}

func NewRedisDedupeProvider(client *redis.Client, prefix string) *RedisDedupeProvider {
	return &RedisDedupeProvider{
		client: client,
		prefix: prefix,
	}
}

func (d *RedisDedupeProvider) Deduplicate(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := d.client.SetNX(ctx, d.prefix+key, 1, ttl).Result()
	if err != nil {
		return true
	}

	return ok
}

func (d *RedisDedupeProvider) Release(ctx context.Context, key string) {
	d.client.Del(ctx, d.prefix+key)
}
