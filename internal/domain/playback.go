package domain

import "time"

// PlaybackStatus is the preparation state of a playback session
type PlaybackStatus string

const (
	PlaybackNotPrepared   PlaybackStatus = "not_prepared"
	PlaybackLoadingValues PlaybackStatus = "loading_values"
	PlaybackReadyToPlay   PlaybackStatus = "ready_to_play"
	PlaybackFailed        PlaybackStatus = "failed"
)

// TimeControlStatus mirrors the player's time control state
type TimeControlStatus string

const (
	TimeControlPaused  TimeControlStatus = "paused"
	TimeControlWaiting TimeControlStatus = "waiting"
	TimeControlPlaying TimeControlStatus = "playing"
)

// VideoGravity is how the video fills its layer; resizeAspectFill means fullscreen
type VideoGravity string

const (
	GravityResizeAspect     VideoGravity = "resizeAspect"
	GravityResizeAspectFill VideoGravity = "resizeAspectFill"
	GravityResize           VideoGravity = "resize"
)

// AssetResolution tells where a prepared asset comes from
type AssetResolution string

const (
	ResolutionCompleted         AssetResolution = "completed"
	ResolutionPartial           AssetResolution = "partial"
	ResolutionRemote            AssetResolution = "remote"
	ResolutionDownloadScheduled AssetResolution = "download_scheduled"
)

// PlayerItem is an asset attached to a player once it is ready
type PlayerItem struct {
	AssetURL   string          `json:"asset_url"`
	Local      bool            `json:"local"`
	Resolution AssetResolution `json:"resolution"`
}

// PlaybackRequest asks for a title to be played
type PlaybackRequest struct {
	Title               string     `json:"title" binding:"required"`
	ContentID           string     `json:"content_id" binding:"required"`
	VideoID             float64    `json:"video_id"`
	Mode                PlayerMode `json:"mode"`
	PartiallyDownloaded bool       `json:"partially_downloaded"`
	Username            string     `json:"username,omitempty"`
}

// PlaybackState is a snapshot of a playback session
type PlaybackState struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	VideoID           float64           `json:"video_id"`
	Mode              PlayerMode        `json:"mode"`
	Status            PlaybackStatus    `json:"status"`
	Resolution        AssetResolution   `json:"resolution,omitempty"`
	Item              *PlayerItem       `json:"item,omitempty"`
	TimeControlStatus TimeControlStatus `json:"time_control_status,omitempty"`
	Gravity           VideoGravity      `json:"gravity,omitempty"`
	Volume            float64           `json:"volume"`
	Error             string            `json:"error,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// PlayerEventType names a state change reported by the player
type PlayerEventType string

const (
	PlayerEventTimeControl PlayerEventType = "time_control"
	PlayerEventGravity     PlayerEventType = "gravity"
	PlayerEventVolume      PlayerEventType = "volume"
	PlayerEventPlayedToEnd PlayerEventType = "played_to_end"
)

// PlayerEvent is a player state change; Value carries the new state
type PlayerEvent struct {
	Type  PlayerEventType `json:"type" binding:"required"`
	Value string          `json:"value"`
}
