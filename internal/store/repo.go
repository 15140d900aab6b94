// Package store provides the typed repositories the services and handlers are
// constructed with. Each repository wraps one kv namespace.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"ploxora/internal/kv"
)

// Namespaces used by the panel
const (
	NSNodes    = "nodes"
	NSServers  = "servers"
	NSUsers    = "users"
	NSSessions = "sessions"
	NSSettings = "settings"
	NSNestBits = "nestbits"
	NSTheme    = "theme"
)

// Repo is a typed view over a kv.Store holding JSON documents of type T
type Repo[T any] struct {
	kv kv.Store
}

// NewRepo wraps a kv.Store
func NewRepo[T any](s kv.Store) *Repo[T] {
	return &Repo[T]{kv: s}
}

// Get loads the document stored under id
func (r *Repo[T]) Get(ctx context.Context, id string) (*T, error) {
	var v T
	if err := kv.GetJSON(ctx, r.kv, id, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Put stores v under id
func (r *Repo[T]) Put(ctx context.Context, id string, v *T) error {
	return kv.SetJSON(ctx, r.kv, id, v)
}

// Delete removes the document stored under id
func (r *Repo[T]) Delete(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, id)
}

// List returns every document in insertion order
func (r *Repo[T]) List(ctx context.Context) ([]*T, error) {
	out := []*T{}
	err := r.Each(ctx, func(_ string, v *T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// Each decodes each document and passes it to fn. Return kv.ErrStop to stop early.
func (r *Repo[T]) Each(ctx context.Context, fn func(id string, v *T) error) error {
	return r.kv.Iterate(ctx, func(key string, raw []byte) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("failed to decode %q: %w", key, err)
		}
		return fn(key, &v)
	})
}

// Count returns the number of stored documents
func (r *Repo[T]) Count(ctx context.Context) (int, error) {
	n := 0
	err := r.kv.Iterate(ctx, func(string, []byte) error {
		n++
		return nil
	})
	return n, err
}

// Find returns the first document matching pred, or nil
func (r *Repo[T]) Find(ctx context.Context, pred func(v *T) bool) (*T, error) {
	var found *T
	err := r.Each(ctx, func(_ string, v *T) error {
		if pred(v) {
			found = v
			return kv.ErrStop
		}
		return nil
	})
	return found, err
}
