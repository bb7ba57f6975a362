package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

// AssetStorage maps titles to resumable location bookmarks.
// Single process, last write wins.
type AssetStorage struct {
	repo       domain.BookmarkRepository
	bookmarker domain.Bookmarker
	bitrate    int
	logger     *zap.Logger
}

// NewAssetStorage creates a new asset storage
func NewAssetStorage(repo domain.BookmarkRepository, bookmarker domain.Bookmarker, minimumBitrate int, logger *zap.Logger) *AssetStorage {
	return &AssetStorage{
		repo:       repo,
		bookmarker: bookmarker,
		bitrate:    minimumBitrate,
		logger:     logger,
	}
}

const temporaryPrefix = "tmp_"

// TemporaryKey returns the in-progress key for a title, e.g. "tmp_265_000_Show A"
func TemporaryKey(bitrate int, title string) string {
	return temporaryPrefix + groupThousands(bitrate) + "_" + title
}

func groupThousands(n int) string {
	digits := strconv.Itoa(n)
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *AssetStorage) temporaryKey(title string) string {
	return TemporaryKey(s.bitrate, title)
}

// Cache bookmarks location under the temporary key of title and returns the blob
func (s *AssetStorage) Cache(location, title string) ([]byte, error) {
	data, err := s.bookmarker.Bookmark(location)
	if err != nil {
		return nil, fmt.Errorf("failed to bookmark %s: %w", location, err)
	}
	if err := s.repo.Put(s.temporaryKey(title), data); err != nil {
		return nil, fmt.Errorf("failed to store temporary bookmark: %w", err)
	}

	s.logger.Debug("Cached temporary bookmark",
		zap.String("title", title),
		zap.String("location", location))
	return data, nil
}

// SaveCompleted bookmarks location as the completed download of title
func (s *AssetStorage) SaveCompleted(location, title string) error {
	data, err := s.bookmarker.Bookmark(location)
	if err != nil {
		return fmt.Errorf("failed to bookmark %s: %w", location, err)
	}
	if err := s.repo.Put(title, data); err != nil {
		return fmt.Errorf("failed to store completed bookmark: %w", err)
	}

	s.logger.Info("Saved completed download",
		zap.String("title", title),
		zap.String("location", location))
	return nil
}

// PromoteToCompleted copies the temporary record of title to its completed key.
// An absent temporary record is a no-op.
func (s *AssetStorage) PromoteToCompleted(title string) error {
	data, ok, err := s.repo.Get(s.temporaryKey(title))
	if err != nil {
		return fmt.Errorf("failed to read temporary bookmark: %w", err)
	}
	if !ok {
		return nil
	}
	if err := s.repo.Put(title, data); err != nil {
		return fmt.Errorf("failed to promote bookmark: %w", err)
	}
	return nil
}

// Remove deletes the temporary record of title
func (s *AssetStorage) Remove(title string) error {
	if err := s.repo.Delete(s.temporaryKey(title)); err != nil {
		return fmt.Errorf("failed to remove temporary bookmark: %w", err)
	}
	return nil
}

// RemoveCompleted deletes the completed record of title
func (s *AssetStorage) RemoveCompleted(title string) error {
	if err := s.repo.Delete(title); err != nil {
		return fmt.Errorf("failed to remove completed bookmark: %w", err)
	}
	return nil
}

// Discard deletes the temporary and completed locations of title from disk.
// Bookmark records are left for Remove and RemoveCompleted.
func (s *AssetStorage) Discard(title string) error {
	var errs []error
	seen := make(map[string]bool)
	for _, key := range []string{s.temporaryKey(title), title} {
		location, ok := s.resolve(key, title)
		if !ok || seen[location] {
			continue
		}
		seen[location] = true
		if err := s.bookmarker.Discard(location); err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Info("Deleted download location", zap.String("title", title), zap.String("location", location))
	}
	return errors.Join(errs...)
}

// CompletedDownloads maps every title with a resolvable completed bookmark to its location
func (s *AssetStorage) CompletedDownloads() (map[string]string, error) {
	keys, err := s.repo.Keys("")
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	completed := make(map[string]string)
	for _, key := range keys {
		if strings.HasPrefix(key, temporaryPrefix) {
			continue
		}
		if location, ok := s.resolve(key, key); ok {
			completed[key] = location
		}
	}
	return completed, nil
}

// TemporaryLocation resolves the in-progress location of title
func (s *AssetStorage) TemporaryLocation(title string) (string, bool) {
	return s.resolve(s.temporaryKey(title), title)
}

// CompletedLocation resolves the completed location of title
func (s *AssetStorage) CompletedLocation(title string) (string, bool) {
	return s.resolve(title, title)
}

// resolve treats unreadable or unresolvable bookmarks as absent and refreshes stale ones
func (s *AssetStorage) resolve(key, title string) (string, bool) {
	data, ok, err := s.repo.Get(key)
	if err != nil {
		s.logger.Warn("Failed to read bookmark", zap.String("key", key), zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}

	location, stale, err := s.bookmarker.Resolve(data)
	if err != nil {
		s.logger.Debug("Bookmark no longer resolves",
			zap.String("key", key),
			zap.String("title", title),
			zap.Error(err))
		return "", false
	}

	if stale {
		if fresh, err := s.bookmarker.Bookmark(location); err == nil {
			if err := s.repo.Put(key, fresh); err != nil {
				s.logger.Warn("Failed to refresh stale bookmark", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return location, true
}
