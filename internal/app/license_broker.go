package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

// LicenseClient performs the raw HTTP exchanges with the key and license services
type LicenseClient interface {
	// FetchKeyID GETs the key-resolution endpoint and returns the body
	FetchKeyID(ctx context.Context, url string) (string, error)
	// RequestLicense POSTs the SPC to the license endpoint and returns the response body
	RequestLicense(ctx context.Context, url string, spc []byte) ([]byte, error)
}

// LicenseBroker resolves key identifiers, exchanges SPCs for content keys and caches keys
type LicenseBroker struct {
	client LicenseClient
	keys   domain.ContentKeyRepository
	logger *zap.Logger

	mu           sync.Mutex
	certificates map[string][]byte
}

// NewLicenseBroker creates a new license broker
func NewLicenseBroker(client LicenseClient, keys domain.ContentKeyRepository, logger *zap.Logger) *LicenseBroker {
	return &LicenseBroker{
		client:       client,
		keys:         keys,
		logger:       logger,
		certificates: make(map[string][]byte),
	}
}

// ResolveKeyID fetches the FairPlay key identifier for desc and stores it on the descriptor.
// On failure the descriptor is left without a key identifier.
func (b *LicenseBroker) ResolveKeyID(ctx context.Context, desc *domain.StreamDescriptor) error {
	desc.FairplayKeyID = ""

	keyURL, err := desc.KeyIDURL()
	if err != nil {
		return err
	}

	body, err := b.client.FetchKeyID(ctx, keyURL)
	if err != nil {
		b.logger.Warn("Key id request failed",
			zap.String("content_id", desc.ContentID),
			zap.Error(err))
		return err
	}

	if strings.Contains(body, domain.AccessDeniedMarker) {
		b.logger.Warn("Key id request denied", zap.String("content_id", desc.ContentID))
		return fmt.Errorf("%s: %w", desc.FormattedContentID(), domain.ErrAccessDenied)
	}

	keyID := stripWhitespace(body)
	if keyID == "" {
		return fmt.Errorf("%s: %w", desc.FormattedContentID(), domain.ErrEmptyKeyID)
	}

	desc.FairplayKeyID = keyID
	b.logger.Info("Resolved key id",
		zap.String("content_id", desc.ContentID),
		zap.String("key_id", keyID))
	return nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\t', '\r':
			return -1
		}
		return r
	}, s)
}

// ExchangeLicense posts spc to the license endpoint of desc and returns the server payload
func (b *LicenseBroker) ExchangeLicense(ctx context.Context, desc *domain.StreamDescriptor, spc []byte) ([]byte, error) {
	licenseURL, err := desc.LicenseURL()
	if err != nil {
		return nil, err
	}

	payload, err := b.client.RequestLicense(ctx, licenseURL, spc)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, &domain.TransportError{Op: "license", Err: errors.New("empty license response")}
	}

	b.logger.Info("License exchanged",
		zap.String("content_id", desc.ContentID),
		zap.Int("bytes", len(payload)))
	return payload, nil
}

// CachedKey returns the persisted key of an asset; read errors count as a miss
func (b *LicenseBroker) CachedKey(assetID string) ([]byte, bool) {
	key, ok, err := b.keys.FindContentKey(assetID)
	if err != nil {
		b.logger.Warn("Failed to read content key", zap.String("asset_id", assetID), zap.Error(err))
		return nil, false
	}
	return key, ok
}

// StoreKey persists the key of an asset
func (b *LicenseBroker) StoreKey(assetID string, key []byte) error {
	if err := b.keys.SaveContentKey(assetID, key); err != nil {
		return fmt.Errorf("failed to store content key: %w", err)
	}
	return nil
}

// Certificate returns the application certificate configured for desc
func (b *LicenseBroker) Certificate(desc *domain.StreamDescriptor) ([]byte, error) {
	path := desc.CertificatePath
	if path == "" {
		return nil, domain.ErrMissingCertificate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cert, ok := b.certificates[path]; ok {
		return cert, nil
	}

	cert, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMissingCertificate, err)
	}
	if len(cert) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrMissingCertificate, path)
	}

	b.certificates[path] = cert
	return cert, nil
}
