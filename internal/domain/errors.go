package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied is returned when the key-resolution service refuses the request
	ErrAccessDenied = errors.New("access denied by key service")
	// ErrEmptyKeyID is returned when the key-resolution service answers with an empty body
	ErrEmptyKeyID = errors.New("empty key identifier")
	// ErrMissingContentID is returned when a stream has no usable content identifier
	ErrMissingContentID = errors.New("missing content identifier")
	// ErrMissingLicenseURL is returned when the license URL cannot be built
	ErrMissingLicenseURL = errors.New("missing license url")
	// ErrMissingCertificate is returned when the application certificate cannot be read
	ErrMissingCertificate = errors.New("missing application certificate")
	// ErrMalformedDescriptor is returned for task descriptors that do not parse
	ErrMalformedDescriptor = errors.New("malformed task descriptor")
	// ErrTaskNotFound is returned when no task matches a title
	ErrTaskNotFound = errors.New("task not found")
	// ErrLocationUnavailable is returned when a bookmarked location no longer exists
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrSessionNotFound is returned for unknown playback sessions
	ErrSessionNotFound = errors.New("playback session not found")
	// ErrInvalidPlayerEvent is returned for player events with an unknown type or value
	ErrInvalidPlayerEvent = errors.New("invalid player event")
	// ErrInvalidMode is returned for playback requests with an unknown player mode
	ErrInvalidMode = errors.New("invalid player mode")

	ErrAssetNotPlayable   = errors.New("asset is not playable")
	ErrAssetLoadFailed    = errors.New("asset load failed")
	ErrAssetLoadCancelled = errors.New("asset load cancelled")

	// ErrRequestCancelled is returned for key loading requests cancelled by the player
	ErrRequestCancelled = errors.New("loading request cancelled")
)

// AccessDeniedMarker is the text the key-resolution service puts in refusal bodies
const AccessDeniedMarker = "Access Denied"

// KeyErrorDomain scopes the codes carried by KeyError
const KeyErrorDomain = "offline-player.fps.error"

// Key exchange error codes
const (
	KeyCodeMissingURL     = -2
	KeyCodeRequestData    = -4
	KeyCodeLicenseRequest = -5
)

// TransportError wraps a network failure talking to a remote service
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// KeyError fails a single key loading request with a domain-scoped code
type KeyError struct {
	Code int
	Err  error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s %d: %v", KeyErrorDomain, e.Code, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// AssetError is reported to playback delegates when an asset cannot be prepared
type AssetError struct {
	URL string
	Err error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.URL, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// IsTransportError reports whether err came from the network layer
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
