package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is a row of the kv_entries table
type Entry struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Namespace string         `gorm:"column:namespace;type:varchar(64);not null;uniqueIndex:uk_namespace_key,priority:1"`
	Key       string         `gorm:"column:entry_key;type:varchar(191);not null;uniqueIndex:uk_namespace_key,priority:2"`
	Value     datatypes.JSON `gorm:"column:value;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for Entry
func (Entry) TableName() string {
	return "kv_entries"
}

// GormStore stores a namespace as rows of kv_entries (MySQL or SQLite)
type GormStore struct {
	db        *gorm.DB
	namespace string
}

// NewGormStore creates a store bound to a namespace
func NewGormStore(db *gorm.DB, namespace string) *GormStore {
	return &GormStore{db: db, namespace: namespace}
}

// NewGormOpener returns an Opener backed by db
func NewGormOpener(db *gorm.DB) Opener {
	return func(namespace string) Store {
		return NewGormStore(db, namespace)
	}
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(s.namespace, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", s.namespace, key, err)
	}
	return []byte(e.Value), nil
}

func (s *GormStore) Set(ctx context.Context, key string, value []byte) error {
	e := Entry{
		Namespace: s.namespace,
		Key:       key,
		Value:     datatypes.JSON(value),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		Delete(&Entry{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

// Iterate loads the namespace in id order and then calls fn, so fn may write
// to the store without holding a cursor open.
func (s *GormStore) Iterate(ctx context.Context, fn func(key string, value []byte) error) error {
	var entries []Entry
	err := s.db.WithContext(ctx).
		Where("namespace = ?", s.namespace).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", s.namespace, err)
	}
	for _, e := range entries {
		if err := fn(e.Key, []byte(e.Value)); err != nil {
			return iterateDone(err)
		}
	}
	return nil
}
