package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// PlayerMode selects between streaming and playing from the local cache
type PlayerMode string

const (
	ModeOnline  PlayerMode = "online"
	ModeOffline PlayerMode = "offline"
)

// ValidateMode checks if a player mode is valid
func ValidateMode(mode PlayerMode) bool {
	return mode == ModeOnline || mode == ModeOffline
}

// StreamDescriptor describes one protected stream and everything needed to license it.
// It lives for one playback or download request.
type StreamDescriptor struct {
	ContentID             string `json:"content_id"`
	CloudDistributionHost string `json:"cloud_distribution_host"`
	LicenseHost           string `json:"license_host"`
	LicenseUsername       string `json:"license_username"`
	DomainName            string `json:"domain_name"`
	CertificatePath       string `json:"certificate_path"`
	StorageHost           string `json:"storage_host"`
	ProductID             string `json:"product_id"`
	TransactionID         string `json:"transaction_id"`

	// FairplayKeyID is set by the license broker after a successful key resolution
	FairplayKeyID string `json:"fairplay_key_id,omitempty"`
}

// NewStreamDescriptor creates a descriptor for contentID using the configured endpoints
func NewStreamDescriptor(config StreamingConfig, contentID string) *StreamDescriptor {
	return &StreamDescriptor{
		ContentID:             contentID,
		CloudDistributionHost: config.CloudDistributionHost,
		LicenseHost:           config.LicenseHost,
		LicenseUsername:       config.LicenseUsername,
		DomainName:            config.DomainName,
		CertificatePath:       config.CertificatePath,
		StorageHost:           config.StorageHost,
		ProductID:             config.ProductID,
		TransactionID:         config.TransactionID,
	}
}

// FormattedContentID normalizes legacy DW_/HDS_ prefixes to HLS_, drops the .f4v
// extension and keeps the last path segment
func (s *StreamDescriptor) FormattedContentID() string {
	id := strings.ReplaceAll(s.ContentID, "DW_", "HLS_")
	id = strings.ReplaceAll(id, "HDS_", "HLS_")
	id = strings.ReplaceAll(id, ".f4v", "")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return id
}

// ProgramVersion returns the language/version suffix of the content id ("VO", "VF", ...)
func (s *StreamDescriptor) ProgramVersion() string {
	if i := strings.LastIndex(s.ContentID, "-"); i >= 0 {
		return s.ContentID[i+1:]
	}
	return s.ContentID
}

// StreamURL returns the HLS manifest URL on the distribution host
func (s *StreamDescriptor) StreamURL() (string, error) {
	id := s.FormattedContentID()
	if id == "" || s.CloudDistributionHost == "" {
		return "", fmt.Errorf("stream url: %w", ErrMissingContentID)
	}
	return fmt.Sprintf("%s/%s-fairplay-download.ism/stream.m3u8", BaseURL(s.CloudDistributionHost), id), nil
}

// KeyIDURL returns the endpoint resolving the FairPlay key identifier
func (s *StreamDescriptor) KeyIDURL() (string, error) {
	id := s.FormattedContentID()
	if id == "" || s.StorageHost == "" {
		return "", fmt.Errorf("key id url: %w", ErrMissingContentID)
	}
	return fmt.Sprintf("%s/movies/FP/%s-fairplay-download.ism.id", BaseURL(s.StorageHost), id), nil
}

// LicenseURL builds the license endpoint from the key id, account and purchase values
func (s *StreamDescriptor) LicenseURL() (string, error) {
	id := s.FormattedContentID()
	if s.LicenseHost == "" || s.FairplayKeyID == "" || s.LicenseUsername == "" || s.DomainName == "" ||
		id == "" || s.TransactionID == "" || s.ProductID == "" {
		return "", ErrMissingLicenseURL
	}
	return fmt.Sprintf("%s/api/licenses/%s?username=%s_%s&contentId=%s&transactionUid=%s&productUid=%s",
		BaseURL(s.LicenseHost),
		url.PathEscape(s.FairplayKeyID),
		url.QueryEscape(s.LicenseUsername),
		url.QueryEscape(s.DomainName),
		url.QueryEscape(id),
		url.QueryEscape(s.TransactionID),
		url.QueryEscape(s.ProductID),
	), nil
}

// BaseURL prefixes bare host names with https:// and trims trailing slashes
func BaseURL(host string) string {
	host = strings.TrimRight(host, "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host
}
