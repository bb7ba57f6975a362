package infrastructure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/offline-player-go/internal/domain"
)

// fileBookmark is the persisted form of a download location
type fileBookmark struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// FileBookmarker bookmarks download locations on the local filesystem
type FileBookmarker struct{}

// NewFileBookmarker creates a new file bookmarker
func NewFileBookmarker() *FileBookmarker {
	return &FileBookmarker{}
}

// Bookmark records location; it fails when location does not exist
func (b *FileBookmarker) Bookmark(location string) ([]byte, error) {
	path, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLocationUnavailable, err)
	}

	return json.Marshal(fileBookmark{Path: path, ModTime: info.ModTime().UTC()})
}

// Resolve returns the bookmarked location. The bookmark is stale when the location
// changed since it was taken.
func (b *FileBookmarker) Resolve(data []byte) (string, bool, error) {
	var bm fileBookmark
	if err := json.Unmarshal(data, &bm); err != nil {
		return "", false, fmt.Errorf("failed to decode bookmark: %w", err)
	}
	if bm.Path == "" {
		return "", false, domain.ErrLocationUnavailable
	}

	info, err := os.Stat(bm.Path)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", domain.ErrLocationUnavailable, err)
	}

	return bm.Path, !info.ModTime().UTC().Equal(bm.ModTime), nil
}

// Discard removes the download directory at location; a missing location is not an error
func (b *FileBookmarker) Discard(location string) error {
	if location == "" {
		return domain.ErrLocationUnavailable
	}
	if err := os.RemoveAll(location); err != nil {
		return fmt.Errorf("failed to delete %s: %w", location, err)
	}
	return nil
}
