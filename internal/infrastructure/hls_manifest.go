package infrastructure

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/grafov/m3u8"
	"github.com/yourusername/offline-player-go/internal/domain"
)

const (
	manifestFile      = "download.json"
	localPlaylistFile = "stream.m3u8"
)

// downloadManifest is stored in every download location and makes it resumable
type downloadManifest struct {
	SourceURL string            `json:"source_url"`
	MediaURL  string            `json:"media_url"`
	Title     string            `json:"title"`
	KeyURIs   []string          `json:"key_uris,omitempty"`
	Segments  []manifestSegment `json:"segments"`
}

type manifestSegment struct {
	URI       string  `json:"uri"`
	File      string  `json:"file"`
	Duration  float64 `json:"duration"`
	KeyMethod string  `json:"key_method,omitempty"`
	KeyURI    string  `json:"key_uri,omitempty"`
	Done      bool    `json:"done"`
}

// newDownloadManifest lays out the segments of media, fetched from mediaURL
func newDownloadManifest(sourceURL, mediaURL, title string, media *m3u8.MediaPlaylist) (*downloadManifest, error) {
	segments := mediaSegments(media)
	if len(segments) == 0 {
		return nil, fmt.Errorf("media playlist %s has no segments", mediaURL)
	}

	m := &downloadManifest{
		SourceURL: sourceURL,
		MediaURL:  mediaURL,
		Title:     title,
		KeyURIs:   contentKeyURIs(media),
	}

	for i, s := range segments {
		uri, err := resolveURI(mediaURL, s.URI)
		if err != nil {
			return nil, err
		}
		ext := path.Ext(strings.SplitN(s.URI, "?", 2)[0])
		if ext == "" {
			ext = ".ts"
		}

		segment := manifestSegment{
			URI:      uri,
			File:     fmt.Sprintf("segment_%05d%s", i, ext),
			Duration: s.Duration,
		}
		if key := segmentKey(media, s); key != nil && !strings.EqualFold(key.Method, "NONE") {
			segment.KeyMethod = key.Method
			segment.KeyURI = key.URI
		}
		m.Segments = append(m.Segments, segment)
	}
	return m, nil
}

func readManifest(location string) (*downloadManifest, error) {
	data, err := os.ReadFile(filepath.Join(location, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read download manifest: %w", err)
	}
	var m downloadManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode download manifest: %w", err)
	}
	return &m, nil
}

// write replaces the manifest in location atomically
func (m *downloadManifest) write(location string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode download manifest: %w", err)
	}
	tmp := filepath.Join(location, manifestFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write download manifest: %w", err)
	}
	return os.Rename(tmp, filepath.Join(location, manifestFile))
}

func (m *downloadManifest) expected() domain.TimeRange {
	total := 0.0
	for _, s := range m.Segments {
		total += s.Duration
	}
	return domain.TimeRange{Duration: seconds(total)}
}

// loaded returns one time range per downloaded segment
func (m *downloadManifest) loaded() []domain.TimeRange {
	var ranges []domain.TimeRange
	start := 0.0
	for _, s := range m.Segments {
		if s.Done {
			ranges = append(ranges, domain.TimeRange{Start: seconds(start), Duration: seconds(s.Duration)})
		}
		start += s.Duration
	}
	return ranges
}

func (m *downloadManifest) doneCount() int {
	n := 0
	for _, s := range m.Segments {
		if s.Done {
			n++
		}
	}
	return n
}

// writeLocalPlaylist writes a media playlist pointing at the downloaded segment files
func (m *downloadManifest) writeLocalPlaylist(location string) error {
	playlist, err := m3u8.NewMediaPlaylist(0, uint(len(m.Segments)))
	if err != nil {
		return fmt.Errorf("failed to create local playlist: %w", err)
	}
	for _, s := range m.Segments {
		if err := playlist.Append(s.File, s.Duration, ""); err != nil {
			return fmt.Errorf("failed to append segment %s: %w", s.File, err)
		}
		if s.KeyURI != "" {
			if err := playlist.SetKey(s.KeyMethod, s.KeyURI, "", "", ""); err != nil {
				return fmt.Errorf("failed to set key for %s: %w", s.File, err)
			}
		}
	}
	playlist.Close()

	return os.WriteFile(filepath.Join(location, localPlaylistFile), playlist.Encode().Bytes(), 0644)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
