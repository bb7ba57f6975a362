package domain

import "time"

// StatType is the event name reported to the stats service
type StatType string

const (
	StatPlayerInit         StatType = "PLAYER_INIT"
	StatVideoPlay          StatType = "VIDEO_PLAY"
	StatVideoPause         StatType = "VIDEO_PAUSE"
	StatVideoEnd           StatType = "VIDEO_END"
	StatVolumeChanged      StatType = "VOLUME_CHANGE"
	StatVolumeMuted        StatType = "VOLUME_MUTED"
	StatBitrateChanged     StatType = "BITRATE_CHANGE"
	StatFullScreenOff      StatType = "FULLSCREEN_OFF"
	StatFullScreenOn       StatType = "FULLSCREEN_ON"
	StatQualityChange      StatType = "QUALITY_CHANGE"
	StatSubtitleChange     StatType = "SUBTITLES_CHANGE"
	StatSliderChange       StatType = "SLIDER_CHANGE"
	StatRetranscriptionOn  StatType = "RETRANSCRIPTION_ON"
	StatRetranscriptionOff StatType = "RETRANSCRIPTION_OFF"
	StatChromeCastOn       StatType = "CHROME_CAST_ON"
	StatChromeCastOff      StatType = "CHROME_CAST_OFF"
)

// StatsDateLayout is the creationDate format expected by the stats service
const StatsDateLayout = "2006-01-02T15:04:05-0700"

// StatEvent is one telemetry emission for a playback session
type StatEvent struct {
	Type           StatType
	SessionID      string
	Username       string
	DomainName     string
	ProgramVersion string
	At             time.Time
}

// StatsPayload is the fixed-shape JSON body sent to the stats service
type StatsPayload struct {
	ApplicationDomain string `json:"applicationDomain"`
	SessionID         string `json:"sessionId"`
	BrowserType       string `json:"browserType"`
	BrowserVersion    string `json:"browserVersion"`
	CreationDate      string `json:"creationDate"`
	DrmType           string `json:"drmType"`
	EventData         string `json:"eventData"`
	EventType         string `json:"eventType"`
	PlayerType        string `json:"playerType"`
	ProgramCode       string `json:"programCode"`
	ProgramVersion    string `json:"programVersion"`
	Username          string `json:"username"`
}
