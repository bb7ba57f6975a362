package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TaskDescriptor identifies a download task and carries its progress.
// Its string form "{title}:{videoId}:{percent}" is the task description held by the transport.
type TaskDescriptor struct {
	Title   string  `json:"title"`
	VideoID float64 `json:"video_id"`
	Percent int     `json:"percent"`
}

// NewTaskDescriptor creates a descriptor at 0%
func NewTaskDescriptor(title string, videoID float64) TaskDescriptor {
	return TaskDescriptor{Title: title, VideoID: videoID}
}

// ParseTaskDescriptor parses "{title}:{videoId}:{percent}"
func ParseTaskDescriptor(s string) (TaskDescriptor, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return TaskDescriptor{}, fmt.Errorf("%w: %q has %d fields", ErrMalformedDescriptor, s, len(parts))
	}
	if parts[0] == "" {
		return TaskDescriptor{}, fmt.Errorf("%w: empty title", ErrMalformedDescriptor)
	}

	videoID, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || math.IsNaN(videoID) || math.IsInf(videoID, 0) {
		return TaskDescriptor{}, fmt.Errorf("%w: video id %q", ErrMalformedDescriptor, parts[1])
	}

	percent, err := strconv.Atoi(parts[2])
	if err != nil || percent < 0 || percent > 100 {
		return TaskDescriptor{}, fmt.Errorf("%w: percent %q", ErrMalformedDescriptor, parts[2])
	}

	return TaskDescriptor{Title: parts[0], VideoID: videoID, Percent: percent}, nil
}

// String encodes the descriptor
func (d TaskDescriptor) String() string {
	return d.Title + ":" + FormatVideoID(d.VideoID) + ":" + strconv.Itoa(d.Percent)
}

// WithPercent returns a copy of the descriptor carrying a new percentage
func (d TaskDescriptor) WithPercent(percent int) TaskDescriptor {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	d.Percent = percent
	return d
}

// FormatVideoID renders a video id without a trailing ".0"
func FormatVideoID(id float64) string {
	return strconv.FormatFloat(id, 'f', -1, 64)
}

// ValidateTitle checks that a title can be embedded in a descriptor
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: empty title", ErrMalformedDescriptor)
	}
	if strings.Contains(title, ":") {
		return fmt.Errorf("%w: title %q contains ':'", ErrMalformedDescriptor, title)
	}
	return nil
}

// TaskInfo is a snapshot of a transfer task for listings
type TaskInfo struct {
	ID         string         `json:"id"`
	Descriptor TaskDescriptor `json:"descriptor"`
	State      TaskState      `json:"state"`
	Bytes      int64          `json:"bytes"`
	Location   string         `json:"location,omitempty"`
}

// DownloadRequest asks for a movie to be downloaded for offline playback
type DownloadRequest struct {
	Title     string  `json:"title" binding:"required"`
	ContentID string  `json:"content_id" binding:"required"`
	VideoID   float64 `json:"video_id"`
}

// Validate checks the request fields
func (r DownloadRequest) Validate() error {
	if err := ValidateTitle(r.Title); err != nil {
		return err
	}
	if strings.TrimSpace(r.ContentID) == "" {
		return ErrMissingContentID
	}
	return nil
}
