package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

// HTTPLicenseClient talks to the key-resolution and license services
type HTTPLicenseClient struct {
	http   *HTTPClient
	logger *zap.Logger
}

// NewHTTPLicenseClient creates a new license client
func NewHTTPLicenseClient(client *HTTPClient, logger *zap.Logger) *HTTPLicenseClient {
	return &HTTPLicenseClient{
		http:   client,
		logger: logger,
	}
}

// FetchKeyID returns the key-resolution body. A 403 is passed through only when its
// body carries the access-denied marker; any other 403 is a transport failure.
func (c *HTTPLicenseClient) FetchKeyID(ctx context.Context, url string) (string, error) {
	resp, err := c.http.Do(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Key id response",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)))

	if resp.OK() {
		return string(resp.Body), nil
	}
	if resp.StatusCode == http.StatusForbidden && strings.Contains(string(resp.Body), domain.AccessDeniedMarker) {
		return string(resp.Body), nil
	}
	return "", &domain.TransportError{Op: "key id", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
}

// RequestLicense posts the SPC and returns the CKC
func (c *HTTPLicenseClient) RequestLicense(ctx context.Context, url string, spc []byte) ([]byte, error) {
	resp, err := c.http.Do(ctx, http.MethodPost, url, "application/octet-stream", spc)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("License response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)))

	if !resp.OK() {
		return nil, &domain.TransportError{Op: "license", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return resp.Body, nil
}
