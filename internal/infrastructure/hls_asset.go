package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/grafov/m3u8"
	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

// HLSAssetLoader decides whether an HLS asset, remote or downloaded, can be played.
// Loading an asset fetches its content keys through the asset's resource loader.
type HLSAssetLoader struct {
	http    *HTTPClient
	cdm     domain.ContentDecryptionModule
	bitrate int
	logger  *zap.Logger
}

// NewHLSAssetLoader creates a new asset loader
func NewHLSAssetLoader(client *HTTPClient, cdm domain.ContentDecryptionModule, minimumBitrate int, logger *zap.Logger) *HLSAssetLoader {
	return &HLSAssetLoader{
		http:    client,
		cdm:     cdm,
		bitrate: minimumBitrate,
		logger:  logger,
	}
}

// LoadPlayable loads the playable key of asset
func (l *HLSAssetLoader) LoadPlayable(ctx context.Context, asset *domain.Asset) (bool, error) {
	var (
		keyURIs  []string
		playable bool
		err      error
	)

	if asset.IsLocal() {
		keyURIs, playable, err = l.inspectLocal(strings.TrimPrefix(asset.URL, "file://"))
	} else {
		keyURIs, playable, err = l.inspectRemote(ctx, asset.URL)
	}
	if err != nil || !playable {
		return false, err
	}

	if _, err := loadContentKeys(ctx, asset, keyURIs, l.cdm); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, err
	}

	l.logger.Debug("Asset playable",
		zap.String("url", asset.URL),
		zap.Int("keys", len(keyURIs)))
	return true, nil
}

func (l *HLSAssetLoader) inspectRemote(ctx context.Context, playlistURL string) ([]string, bool, error) {
	media, _, err := resolveMediaPlaylist(ctx, l.http, playlistURL, l.bitrate)
	if err != nil {
		return nil, false, err
	}
	if len(mediaSegments(media)) == 0 {
		return nil, false, nil
	}
	return contentKeyURIs(media), true, nil
}

// inspectLocal reads a completed download's playlist, or the manifest of a partial one
func (l *HLSAssetLoader) inspectLocal(location string) ([]string, bool, error) {
	data, err := os.ReadFile(filepath.Join(location, localPlaylistFile))
	if err == nil {
		playlist, listType, err := decodePlaylist(data)
		if err != nil {
			return nil, false, err
		}
		if listType != m3u8.MEDIA {
			return nil, false, nil
		}
		media := playlist.(*m3u8.MediaPlaylist)
		return contentKeyURIs(media), len(mediaSegments(media)) > 0, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	manifest, err := readManifest(location)
	if err != nil {
		return nil, false, err
	}
	return manifest.KeyURIs, manifest.doneCount() > 0, nil
}
