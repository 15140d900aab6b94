// Package audit records administrative actions and forwards notifications.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"gorm.io/gorm"

	"ploxora/internal/errs"
	"ploxora/internal/kv"
	"ploxora/internal/model"
)

// Store persists audit entries
type Store interface {
	Append(ctx context.Context, e *model.AuditEntry) error
	// List returns entries newest first. limit <= 0 returns every entry.
	List(ctx context.Context, limit int) ([]*model.AuditEntry, error)
}

// GormStore keeps entries in the audit_logs table
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a table-backed audit store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Append(ctx context.Context, e *model.AuditEntry) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	var entries []*model.AuditEntry
	q := s.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	return entries, nil
}

// KVStore keeps entries in a key-value namespace, keyed by their timestamp.
// Entries sharing a timestamp get the next free key.
type KVStore struct {
	kv   kv.Store
	mu   sync.Mutex
	last int64
}

// NewKVStore creates a namespace-backed audit store
func NewKVStore(s kv.Store) *KVStore {
	return &KVStore{kv: s}
}

func (s *KVStore) Append(ctx context.Context, e *model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := e.ID
	if id == 0 {
		id = e.Timestamp.UnixNano()
	}
	if id <= s.last {
		id = s.last + 1
	}
	for {
		_, err := s.kv.Get(ctx, entryKey(id))
		if errors.Is(err, errs.ErrNotFound) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to check audit key: %w", err)
		}
		id++
	}

	e.ID = id
	if err := kv.SetJSON(ctx, s.kv, entryKey(id), e); err != nil {
		return err
	}
	s.last = id
	return nil
}

// zero padded so lexical and numeric order agree
func entryKey(id int64) string {
	return fmt.Sprintf("%020d", id)
}

func (s *KVStore) List(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	entries := []*model.AuditEntry{}
	err := s.kv.Iterate(ctx, func(key string, raw []byte) error {
		var e model.AuditEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("failed to decode audit entry %s: %w", key, err)
		}
		if e.ID == 0 {
			e.ID, _ = strconv.ParseInt(key, 10, 64)
		}
		entries = append(entries, &e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
