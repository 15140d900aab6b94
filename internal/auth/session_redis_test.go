package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"ploxora/internal/errs"
)

func TestRedisSessions(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	reg := NewRedisSessions(rdb, time.Hour)

	token, err := reg.Create(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL(sessionKey(token)); ttl != time.Hour {
		t.Errorf("Expected session TTL of 1h, got %s", ttl)
	}
	uid, err := reg.Lookup(ctx, token)
	if err != nil || uid != "user-1" {
		t.Fatalf("Lookup = %q, %v", uid, err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"unknown", "bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Lookup(ctx, tt.token); !errors.Is(err, errs.ErrAuthFailed) {
				t.Errorf("Expected ErrAuthFailed, got %v", err)
			}
		})
	}

	mr.FastForward(2 * time.Hour)
	if _, err := reg.Lookup(ctx, token); !errors.Is(err, errs.ErrAuthFailed) {
		t.Errorf("Expected expired session to fail, got %v", err)
	}
}

func TestRedisSessions_Revoke(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	reg := NewRedisSessions(rdb, 0)

	token, err := reg.Create(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if mr.TTL(sessionKey(token)) != DefaultSessionTTL {
		t.Errorf("Expected default TTL, got %s", mr.TTL(sessionKey(token)))
	}
	if err := reg.Revoke(ctx, token); err != nil {
		t.Fatal(err)
	}
	if err := reg.Revoke(ctx, ""); err != nil {
		t.Errorf("Revoke of empty token should be a no-op, got %v", err)
	}
	if _, err := reg.Lookup(ctx, token); !errors.Is(err, errs.ErrAuthFailed) {
		t.Errorf("Expected revoked session to fail, got %v", err)
	}
}
