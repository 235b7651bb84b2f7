package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DocLocker provides per-document mutual exclusion for analysis runs.
// Acquire returns false when the lock is already held.
type DocLocker interface {
	Acquire(ctx context.Context, ownerID, documentID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, ownerID, documentID string) error
}

func lockKey(ownerID, documentID string) string {
	return "analysis:lock:" + ownerID + ":" + documentID
}

// MemoryLocker is a single-process DocLocker used when Redis is absent.
type MemoryLocker struct {
	mu     sync.Mutex
	expiry map[string]time.Time
	now    func() time.Time
}

// NewMemoryLocker constructs a MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		expiry: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, ownerID, documentID string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := lockKey(ownerID, documentID)
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if until, ok := l.expiry[key]; ok && now.Before(until) {
		return false, nil
	}
	l.expiry[key] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLocker) Release(ctx context.Context, ownerID, documentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expiry, lockKey(ownerID, documentID))
	return nil
}

// RedisLocker holds the lock in Redis via SET NX EX so at most one analysis
// runs per document across instances.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker constructs a RedisLocker.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, ownerID, documentID string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockKey(ownerID, documentID), "1", ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, ownerID, documentID string) error {
	return l.client.Del(ctx, lockKey(ownerID, documentID)).Err()
}

var (
	_ DocLocker = (*MemoryLocker)(nil)
	_ DocLocker = (*RedisLocker)(nil)
)
