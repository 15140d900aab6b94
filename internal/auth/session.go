package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ploxora/internal/errs"
	"ploxora/internal/kv"
)

// DefaultSessionTTL is how long a login stays valid
const DefaultSessionTTL = 24 * time.Hour

// SessionRegistry maps opaque session tokens to user ids
type SessionRegistry interface {
	// Create issues a new token for userID
	Create(ctx context.Context, userID string) (string, error)
	// Lookup returns the user id for token. Unknown or expired tokens fail with errs.ErrAuthFailed.
	Lookup(ctx context.Context, token string) (string, error)
	// Revoke forgets token. Unknown tokens are not an error.
	Revoke(ctx context.Context, token string) error
}

// sessionData is the stored value of a session
type sessionData struct {
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// KVSessions keeps sessions in a kv namespace and expires them on lookup
type KVSessions struct {
	store kv.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewKVSessions creates a kv-backed session registry
func NewKVSessions(store kv.Store, ttl time.Duration) *KVSessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &KVSessions{store: store, ttl: ttl, now: time.Now}
}

func (s *KVSessions) Create(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	data := sessionData{UserID: userID, ExpiresAt: s.now().Add(s.ttl)}
	if err := kv.SetJSON(ctx, s.store, token, data); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

func (s *KVSessions) Lookup(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("no session: %w", errs.ErrAuthFailed)
	}
	var data sessionData
	err := kv.GetJSON(ctx, s.store, token, &data)
	if errors.Is(err, errs.ErrNotFound) {
		return "", fmt.Errorf("unknown session: %w", errs.ErrAuthFailed)
	}
	if err != nil {
		return "", err
	}
	if !s.now().Before(data.ExpiresAt) {
		_ = s.store.Delete(ctx, token)
		return "", fmt.Errorf("session expired: %w", errs.ErrAuthFailed)
	}
	return data.UserID, nil
}

func (s *KVSessions) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.Delete(ctx, token)
}

// PurgeExpired removes expired sessions and returns how many were removed
func (s *KVSessions) PurgeExpired(ctx context.Context) (int, error) {
	var expired []string
	now := s.now()
	err := s.store.Iterate(ctx, func(key string, raw []byte) error {
		var data sessionData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil
		}
		if !now.Before(data.ExpiresAt) {
			expired = append(expired, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, key := range expired {
		if err := s.store.Delete(ctx, key); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}
