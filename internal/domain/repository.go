package domain

import "time"

// Bookmark is a persisted resumable location blob
type Bookmark struct {
	Key       string    `json:"key" gorm:"primaryKey;column:bookmark_key"`
	Value     []byte    `json:"value" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the gorm table name
func (Bookmark) TableName() string { return "bookmarks" }

// ContentKey is a persisted content key for one asset
type ContentKey struct {
	AssetID   string    `json:"asset_id" gorm:"primaryKey"`
	Key       []byte    `json:"-" gorm:"column:content_key;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the gorm table name
func (ContentKey) TableName() string { return "content_keys" }

// BookmarkRepository defines the interface for bookmark persistence
type BookmarkRepository interface {
	// Put stores value under key, replacing any previous value
	Put(key string, value []byte) error

	// Get returns the value stored under key and whether it exists
	Get(key string) ([]byte, bool, error)

	// Delete removes key; deleting a missing key is not an error
	Delete(key string) error

	// Keys lists the stored keys starting with prefix
	Keys(prefix string) ([]string, error)
}

// ContentKeyRepository defines the interface for content key persistence
type ContentKeyRepository interface {
	// SaveContentKey stores a key for an asset, replacing any previous key
	SaveContentKey(assetID string, key []byte) error

	// FindContentKey returns the key for an asset and whether it exists
	FindContentKey(assetID string) ([]byte, bool, error)

	// DeleteContentKey removes the key for an asset
	DeleteContentKey(assetID string) error
}
