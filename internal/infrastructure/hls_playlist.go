package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/grafov/m3u8"
)

// skdScheme is the URI scheme of FairPlay keys
const skdScheme = "skd"

// fetchPlaylist downloads and decodes an HLS playlist
func fetchPlaylist(ctx context.Context, client *HTTPClient, playlistURL string) (m3u8.Playlist, m3u8.ListType, error) {
	data, err := client.Get(ctx, playlistURL)
	if err != nil {
		return nil, 0, err
	}
	return decodePlaylist(data)
}

func decodePlaylist(data []byte) (m3u8.Playlist, m3u8.ListType, error) {
	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode playlist: %w", err)
	}
	return playlist, listType, nil
}

// resolveMediaPlaylist follows a master playlist to the variant matching minimumBitrate and
// returns the media playlist with its URL
func resolveMediaPlaylist(ctx context.Context, client *HTTPClient, playlistURL string, minimumBitrate int) (*m3u8.MediaPlaylist, string, error) {
	playlist, listType, err := fetchPlaylist(ctx, client, playlistURL)
	if err != nil {
		return nil, "", err
	}

	switch listType {
	case m3u8.MEDIA:
		return playlist.(*m3u8.MediaPlaylist), playlistURL, nil
	case m3u8.MASTER:
		variant := selectVariant(playlist.(*m3u8.MasterPlaylist), minimumBitrate)
		if variant == nil {
			return nil, "", fmt.Errorf("master playlist %s has no variants", playlistURL)
		}
		mediaURL, err := resolveURI(playlistURL, variant.URI)
		if err != nil {
			return nil, "", err
		}
		playlist, listType, err = fetchPlaylist(ctx, client, mediaURL)
		if err != nil {
			return nil, "", err
		}
		if listType != m3u8.MEDIA {
			return nil, "", fmt.Errorf("variant %s is not a media playlist", mediaURL)
		}
		return playlist.(*m3u8.MediaPlaylist), mediaURL, nil
	default:
		return nil, "", fmt.Errorf("unknown playlist type for %s", playlistURL)
	}
}

// selectVariant returns the lowest-bandwidth variant at or above minimumBitrate, or the
// highest one when none reaches it
func selectVariant(master *m3u8.MasterPlaylist, minimumBitrate int) *m3u8.Variant {
	var best, highest *m3u8.Variant
	for _, v := range master.Variants {
		if v == nil || v.URI == "" {
			continue
		}
		if highest == nil || v.Bandwidth > highest.Bandwidth {
			highest = v
		}
		if int(v.Bandwidth) >= minimumBitrate && (best == nil || v.Bandwidth < best.Bandwidth) {
			best = v
		}
	}
	if best != nil {
		return best
	}
	return highest
}

// mediaSegments returns the populated segments of a media playlist
func mediaSegments(media *m3u8.MediaPlaylist) []*m3u8.MediaSegment {
	segments := make([]*m3u8.MediaSegment, 0, media.Count())
	for _, s := range media.Segments {
		if s != nil {
			segments = append(segments, s)
		}
	}
	return segments
}

// segmentKey returns the key in effect for a segment
func segmentKey(media *m3u8.MediaPlaylist, segment *m3u8.MediaSegment) *m3u8.Key {
	if segment.Key != nil {
		return segment.Key
	}
	return media.Key
}

// contentKeyURIs lists the distinct FairPlay key URIs of a media playlist
func contentKeyURIs(media *m3u8.MediaPlaylist) []string {
	seen := make(map[string]bool)
	var uris []string

	add := func(key *m3u8.Key) {
		if key == nil || key.URI == "" || strings.EqualFold(key.Method, "NONE") {
			return
		}
		if !strings.HasPrefix(strings.ToLower(key.URI), skdScheme+"://") || seen[key.URI] {
			return
		}
		seen[key.URI] = true
		uris = append(uris, key.URI)
	}

	add(media.Key)
	for _, s := range mediaSegments(media) {
		add(s.Key)
	}
	return uris
}

// resolveURI resolves ref against the playlist URL base
func resolveURI(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid playlist url %q: %w", base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid segment uri %q: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
