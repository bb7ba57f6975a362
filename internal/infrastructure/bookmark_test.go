package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/offline-player-go/internal/domain"
)

func TestFileBookmarker(t *testing.T) {
	location := filepath.Join(t.TempDir(), "Show A.movpkg")
	require.NoError(t, os.MkdirAll(location, 0755))

	b := NewFileBookmarker()
	data, err := b.Bookmark(location)
	require.NoError(t, err)

	resolved, stale, err := b.Resolve(data)
	require.NoError(t, err)
	assert.Equal(t, location, resolved)
	assert.False(t, stale)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(location, later, later))
	_, stale, err = b.Resolve(data)
	require.NoError(t, err)
	assert.True(t, stale, "a modified location is stale")

	require.NoError(t, os.RemoveAll(location))
	_, _, err = b.Resolve(data)
	assert.ErrorIs(t, err, domain.ErrLocationUnavailable)
}

func TestFileBookmarker_Discard(t *testing.T) {
	location := filepath.Join(t.TempDir(), "Show A.movpkg")
	require.NoError(t, os.MkdirAll(filepath.Join(location, "keys"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(location, "keys", "a.key"), []byte("key"), 0600))

	b := NewFileBookmarker()
	data, err := b.Bookmark(location)
	require.NoError(t, err)

	require.NoError(t, b.Discard(location))
	assert.NoDirExists(t, location)
	_, _, err = b.Resolve(data)
	assert.ErrorIs(t, err, domain.ErrLocationUnavailable)

	assert.NoError(t, b.Discard(location), "discarding twice is fine")
	assert.ErrorIs(t, b.Discard(""), domain.ErrLocationUnavailable)
}

func TestFileBookmarker_MissingLocation(t *testing.T) {
	b := NewFileBookmarker()
	_, err := b.Bookmark(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, domain.ErrLocationUnavailable)

	_, _, err = b.Resolve([]byte("not json"))
	assert.Error(t, err)

	_, _, err = b.Resolve([]byte(`{}`))
	assert.ErrorIs(t, err, domain.ErrLocationUnavailable)
}
