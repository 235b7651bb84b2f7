package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLockerMutualExclusion(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "user-1", "doc-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	ok, err = locker.Acquire(ctx, "user-1", "doc-1", time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("second acquire succeeded while lock held")
	}

	// different document is independent
	ok, err = locker.Acquire(ctx, "user-1", "doc-2", time.Minute)
	if err != nil || !ok {
		t.Fatalf("other doc acquire: ok=%v err=%v", ok, err)
	}

	if err := locker.Release(ctx, "user-1", "doc-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = locker.Acquire(ctx, "user-1", "doc-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestMemoryLockerExpiry(t *testing.T) {
	locker := NewMemoryLocker()
	current := time.Now()
	locker.now = func() time.Time { return current }
	ctx := context.Background()

	if ok, _ := locker.Acquire(ctx, "user-1", "doc-1", time.Second); !ok {
		t.Fatal("first acquire failed")
	}

	current = current.Add(2 * time.Second)
	ok, err := locker.Acquire(ctx, "user-1", "doc-1", time.Second)
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	if !ok {
		t.Fatal("expired lock was not reacquirable")
	}
}

func TestRedisLockerMutualExclusion(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client)
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "user-1", "doc-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	ok, err = locker.Acquire(ctx, "user-1", "doc-1", time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("second acquire succeeded while lock held")
	}

	if err := locker.Release(ctx, "user-1", "doc-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = locker.Acquire(ctx, "user-1", "doc-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestRedisLockerTTLExpiry(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client)
	ctx := context.Background()

	if ok, _ := locker.Acquire(ctx, "user-1", "doc-1", time.Second); !ok {
		t.Fatal("first acquire failed")
	}

	srv.FastForward(2 * time.Second)

	ok, err := locker.Acquire(ctx, "user-1", "doc-1", time.Second)
	if err != nil {
		t.Fatalf("acquire after ttl: %v", err)
	}
	if !ok {
		t.Fatal("expired lock was not reacquirable")
	}
}
