package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ploxora/internal/errs"
	"ploxora/internal/kv"
)

// InitializedKey is an internal marker hidden from settings listings
const InitializedKey = "__initialized__"

// SettingsRepo stores free-form settings. Values are any JSON scalar.
type SettingsRepo struct {
	kv kv.Store
}

// Get returns the value for key, or nil when the key is unset
func (r *SettingsRepo) Get(ctx context.Context, key string) (any, error) {
	raw, err := r.kv.Get(ctx, key)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode setting %q: %w", key, err)
	}
	return v, nil
}

// GetString returns the value for key rendered as a string, "" when unset
func (r *SettingsRepo) GetString(ctx context.Context, key string) (string, error) {
	v, err := r.Get(ctx, key)
	if err != nil || v == nil {
		return "", err
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

// Has reports whether key is set
func (r *SettingsRepo) Has(ctx context.Context, key string) (bool, error) {
	v, err := r.Get(ctx, key)
	return v != nil, err
}

// Set stores value under key
func (r *SettingsRepo) Set(ctx context.Context, key string, value any) error {
	return kv.SetJSON(ctx, r.kv, key, value)
}

// All returns every setting except the internal marker
func (r *SettingsRepo) All(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any)
	err := r.kv.Iterate(ctx, func(key string, raw []byte) error {
		if key == InitializedKey {
			return nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("failed to decode setting %q: %w", key, err)
		}
		out[key] = v
		return nil
	})
	return out, err
}
