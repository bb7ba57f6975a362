package domain

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// TaskState represents the state of a transfer task
type TaskState int

const (
	TaskRunning TaskState = iota
	TaskSuspended
	TaskCanceling
	TaskCompleted
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskSuspended:
		return "suspended"
	case TaskCanceling:
		return "canceling"
	case TaskCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON payloads
func (s TaskState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText
func (s *TaskState) UnmarshalText(text []byte) error {
	for _, state := range []TaskState{TaskRunning, TaskSuspended, TaskCanceling, TaskCompleted} {
		if state.String() == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown task state %q", text)
}

// TimeRange is a span of media time
type TimeRange struct {
	Start    time.Duration
	Duration time.Duration
}

// Asset is a media resource that can be downloaded or played.
// URL is either a remote playlist URL or a local download location.
type Asset struct {
	URL                         string
	PreloadsEligibleContentKeys bool
	ResourceLoader              ResourceLoaderDelegate
}

// IsLocal reports whether the asset points at a downloaded location
func (a *Asset) IsLocal() bool {
	u, err := url.Parse(a.URL)
	if err != nil {
		return false
	}
	return u.Scheme == "" || u.Scheme == "file"
}

// ResourceLoaderDelegate is consulted whenever key material is needed for an asset
type ResourceLoaderDelegate interface {
	// ShouldWaitForLoading returns true when the delegate takes ownership of the request
	// and will finish it later
	ShouldWaitForLoading(req LoadingRequest) bool
}

// LoadingRequest is one pending request for key material
type LoadingRequest interface {
	Context() context.Context
	URL() *url.URL
	// ContentKeyRequestData produces the secure playback context (SPC) for the license server
	ContentKeyRequestData(certificate, contentID []byte) ([]byte, error)
	// PersistentContentKey derives a persistable key from a license server response
	PersistentContentKey(response []byte) ([]byte, error)
	Respond(data []byte)
	Finish(err error)
}

// ContentDecryptionModule produces key requests and persistable keys
type ContentDecryptionModule interface {
	KeyRequestData(certificate, contentID []byte) ([]byte, error)
	PersistableKey(response []byte) ([]byte, error)
}

// TransferTask is a handle on one asset download owned by a TransferSession
type TransferTask interface {
	ID() string
	Description() string
	SetDescription(description string)
	State() TaskState
	BytesReceived() int64
	Asset() *Asset
	// Location is where the task stores downloaded media, empty before the first write
	Location() string
	Resume()
	Suspend()
	Cancel()
}

// TransferSession creates and tracks asset download tasks
type TransferSession interface {
	MakeAssetDownloadTask(asset *Asset, title string, minimumBitrate int) (TransferTask, error)
	Tasks() []TransferTask
}

// TransferDelegate receives task callbacks, all on the session's delegate queue
type TransferDelegate interface {
	DidLoadTimeRange(task TransferTask, loaded []TimeRange, expected TimeRange)
	DidFinishDownloading(task TransferTask, location string)
	DidComplete(task TransferTask, err error)
}

// AssetLoader decides whether an asset can be played
type AssetLoader interface {
	LoadPlayable(ctx context.Context, asset *Asset) (bool, error)
}

// Bookmarker turns a download location into an opaque resumable blob and back
type Bookmarker interface {
	Bookmark(location string) ([]byte, error)
	// Resolve returns the location; stale is true when the blob should be refreshed
	Resolve(data []byte) (location string, stale bool, err error)
	// Discard deletes location and everything stored under it
	Discard(location string) error
}

// AssetIDFromKeyURL derives the persisted key name from a key URI:
// the text after the last ';' or the host when there is none
func AssetIDFromKeyURL(u *url.URL) string {
	raw := u.String()
	if i := strings.LastIndex(raw, ";"); i >= 0 {
		return raw[i+1:]
	}
	return u.Host
}

// ContentIDFromKeyURL returns the content identifier carried by a key URI: its host
// without any ";" parameter
func ContentIDFromKeyURL(u *url.URL) string {
	host := u.Host
	if i := strings.Index(host, ";"); i >= 0 {
		host = host[:i]
	}
	return host
}
