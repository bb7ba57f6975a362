package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/offline-player-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteAssetRepository implements BookmarkRepository and ContentKeyRepository using SQLite
type SQLiteAssetRepository struct {
	db *gorm.DB
}

// NewSQLiteAssetRepository creates a new SQLite repository
func NewSQLiteAssetRepository(dbPath string) (*SQLiteAssetRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Bookmark{}, &domain.ContentKey{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteAssetRepository{db: db}, nil
}

// ============================================================================
// BookmarkRepository implementation
// ============================================================================

// Put upserts a bookmark
func (r *SQLiteAssetRepository) Put(key string, value []byte) error {
	bookmark := &domain.Bookmark{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bookmark_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(bookmark).Error
}

// Get returns the bookmark stored under key
func (r *SQLiteAssetRepository) Get(key string) ([]byte, bool, error) {
	var bookmark domain.Bookmark
	err := r.db.Where("bookmark_key = ?", key).First(&bookmark).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return bookmark.Value, true, nil
}

// Delete removes a bookmark
func (r *SQLiteAssetRepository) Delete(key string) error {
	return r.db.Delete(&domain.Bookmark{}, "bookmark_key = ?", key).Error
}

// Keys lists bookmark keys with the given prefix
func (r *SQLiteAssetRepository) Keys(prefix string) ([]string, error) {
	var keys []string
	query := r.db.Model(&domain.Bookmark{})
	if prefix != "" {
		query = query.Where("substr(bookmark_key, 1, ?) = ?", len(prefix), prefix)
	}
	err := query.Order("bookmark_key ASC").Pluck("bookmark_key", &keys).Error
	return keys, err
}

// ============================================================================
// ContentKeyRepository implementation
// ============================================================================

// SaveContentKey upserts the key for an asset
func (r *SQLiteAssetRepository) SaveContentKey(assetID string, key []byte) error {
	record := &domain.ContentKey{AssetID: assetID, Key: key, UpdatedAt: time.Now()}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_key", "updated_at"}),
	}).Create(record).Error
}

// FindContentKey returns the key for an asset
func (r *SQLiteAssetRepository) FindContentKey(assetID string) ([]byte, bool, error) {
	var record domain.ContentKey
	err := r.db.Where("asset_id = ?", assetID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return record.Key, true, nil
}

// DeleteContentKey removes the key for an asset
func (r *SQLiteAssetRepository) DeleteContentKey(assetID string) error {
	return r.db.Delete(&domain.ContentKey{}, "asset_id = ?", assetID).Error
}

// Ping checks the database connection
func (r *SQLiteAssetRepository) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the database connection
func (r *SQLiteAssetRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
