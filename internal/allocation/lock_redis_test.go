package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis, *test.Hook) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger, hook := test.NewNullLogger()
	l := NewRedisLocker(rdb, ttl, logrus.NewEntry(logger))
	l.retry = 5 * time.Millisecond
	return l, mr, hook
}

func TestRedisLocker_ExcludesSecondOwner(t *testing.T) {
	l, _, _ := newRedisLocker(t, time.Minute)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "node-1")
	if err != nil {
		t.Fatal(err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(waitCtx, "node-1"); err == nil {
		t.Fatal("Expected second owner to be kept out until its deadline")
	}

	other, err := l.Lock(ctx, "node-2")
	if err != nil {
		t.Fatalf("Expected other key to be free, got %v", err)
	}
	other()

	unlock()
	again, err := l.Lock(ctx, "node-1")
	if err != nil {
		t.Fatalf("Expected lock to be free after release, got %v", err)
	}
	again()
}

func TestRedisLocker_TTLExpiry(t *testing.T) {
	l, mr, _ := newRedisLocker(t, time.Second)
	ctx := context.Background()

	if _, err := l.Lock(ctx, "node-1"); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlock, err := l.Lock(waitCtx, "node-1")
	if err != nil {
		t.Fatalf("Expected expired lock to be taken over, got %v", err)
	}
	unlock()
}

func TestRedisLocker_ReleaseOnlyByOwner(t *testing.T) {
	l, mr, hook := newRedisLocker(t, time.Second)
	ctx := context.Background()

	stale, err := l.Lock(ctx, "node-1")
	if err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)

	current, err := l.Lock(ctx, "node-1")
	if err != nil {
		t.Fatal(err)
	}
	stale()
	if !mr.Exists("ploxora:lock:node-1") {
		t.Fatal("Expected the stale holder to leave the new owner's lock in place")
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.WarnLevel {
		t.Errorf("Expected a warning for the expired lock, got %+v", e)
	}

	current()
	if mr.Exists("ploxora:lock:node-1") {
		t.Error("Expected the owner's release to delete the lock")
	}
}

func TestRedisLocker_LogsFailedRelease(t *testing.T) {
	l, mr, hook := newRedisLocker(t, time.Minute)

	unlock, err := l.Lock(context.Background(), "node-1")
	if err != nil {
		t.Fatal(err)
	}
	mr.Close()
	unlock()

	e := hook.LastEntry()
	if e == nil || e.Level != logrus.ErrorLevel {
		t.Fatalf("Expected an error entry for the failed release, got %+v", e)
	}
}
