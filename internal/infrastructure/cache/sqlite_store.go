package cache

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
)

// sqliteEntry is a row of the on-disk key/value table
type sqliteEntry struct {
	Key       string     `gorm:"primaryKey;type:varchar(255)"`
	Value     []byte     `gorm:"not null"`
	ExpiresAt *time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (sqliteEntry) TableName() string {
	return "local_cart_entries"
}

// SQLiteStore implements KeyValueStore on an embedded SQLite file.
// It is the default durable store for anonymous carts on a single instance.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the SQLite file at path and migrates its table.
// Use ":memory:" for a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create local cache directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get local cache handle: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps ":memory:" on one database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&sqliteEntry{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate local cache: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the unexpired value stored under key
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entries []sqliteEntry
	err := s.db.WithContext(ctx).
		Where("key = ?", key).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(entries) == 0 {
		return nil, false, nil
	}
	return entries[0].Value, true, nil
}

// Set inserts or replaces the value under key
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := sqliteEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	if ttl > 0 {
		expiresAt := entry.UpdatedAt.Add(ttl)
		entry.ExpiresAt = &expiresAt
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key; a missing key is not an error
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&sqliteEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", time.Now()).
		Delete(&sqliteEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ KeyValueStore = (*SQLiteStore)(nil)
