package domain

import "time"

// EventKind names a broadcast notification
type EventKind string

const (
	EventDownloadInProgress EventKind = "download_in_progress"
	EventDownloadPaused     EventKind = "download_paused"
	EventDownloadFinished   EventKind = "download_finished"
	EventDownloadFailed     EventKind = "download_failed"
	EventDownloadCancelled  EventKind = "download_cancelled"
	EventDownloadCached     EventKind = "download_cached"
	EventConnectivityLost   EventKind = "connectivity_lost"
	EventKeyExchangeError   EventKind = "key_exchange_error"
)

// AssetDownloadProgression is the payload of a download_in_progress event
type AssetDownloadProgression struct {
	VideoIdentifier  float64 `json:"video_identifier"`
	DownloadProgress int     `json:"download_progress"`
	BytesDownloaded  string  `json:"bytes_downloaded"`
	TotalBytes       string  `json:"total_bytes"`
}

// Event is published on the event bus
type Event struct {
	Kind        EventKind                 `json:"kind"`
	VideoID     float64                   `json:"video_id,omitempty"`
	Title       string                    `json:"title,omitempty"`
	Progression *AssetDownloadProgression `json:"progression,omitempty"`
	Error       string                    `json:"error,omitempty"`
	Timestamp   time.Time                 `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time
func NewEvent(kind EventKind, title string, videoID float64) Event {
	return Event{Kind: kind, Title: title, VideoID: videoID, Timestamp: time.Now()}
}

// WithError attaches an error message
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
