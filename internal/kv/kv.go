// Package kv provides the namespaced key-value persistence used for every
// panel entity. A Store holds one namespace (nodes, servers, users, ...);
// values are JSON documents.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ploxora/internal/errs"
)

// ErrStop can be returned from an Iterate callback to end iteration early
var ErrStop = errors.New("kv: stop iteration")

// Store is a persistent map for a single namespace
type Store interface {
	// Get returns the raw value for key or an error wrapping errs.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Iterate calls fn for each entry in insertion order.
	Iterate(ctx context.Context, fn func(key string, value []byte) error) error
}

// Opener returns the Store for a namespace
type Opener func(namespace string) Store

func notFound(namespace, key string) error {
	return fmt.Errorf("%s %q: %w", namespace, key, errs.ErrNotFound)
}

// GetJSON decodes the value stored under key into out
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return nil
}

// SetJSON encodes value and stores it under key
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// iterateDone swallows ErrStop returned by a callback
func iterateDone(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}
