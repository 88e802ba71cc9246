// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package kvstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"neardeal/cli/internal/xdg"
)

// kvEntry is one stored key in the sqlite backend.
type kvEntry struct {
	Key       string `gorm:"column:entry_key;primaryKey"`
	Value     string `gorm:"column:entry_value;not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

// SQLite is a Store on a gorm-managed sqlite database. MultiSet runs in a single
// transaction, so both-or-neither holds even across a crash.
type SQLite struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) the database at path. An empty path selects
// credentials.db in the XDG data directory.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		dir, err := xdg.DataDir()
		if err != nil {
			return nil, unavailable("resolve data dir", err)
		}
		path = filepath.Join(dir, "credentials.db")
	} else if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, unavailable("create database directory", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, unavailable("open sqlite "+path, err)
	}
	return NewSQLite(db)
}

// NewSQLite wraps an existing gorm handle and creates the table if needed.
func NewSQLite(db *gorm.DB) (*SQLite, error) {
	if db == nil {
		return nil, unavailable("sqlite", fmt.Errorf("database connection is not initialized"))
	}
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, unavailable("migrate kv_entries", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) MultiSet(ctx context.Context, pairs map[string]string) error {
	if len(pairs) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]kvEntry, 0, len(pairs))
	for k, v := range pairs {
		rows = append(rows, kvEntry{Key: k, Value: v, UpdatedAt: now})
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return unavailable("sqlite multiset", err)
	}
	return nil
}

func (s *SQLite) MultiGet(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	var rows []kvEntry
	if err := s.db.WithContext(ctx).Where("entry_key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, unavailable("sqlite multiget", err)
	}
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *SQLite) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("entry_key IN ?", keys).Delete(&kvEntry{}).Error; err != nil {
		return unavailable("sqlite multiremove", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
