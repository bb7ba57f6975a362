package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/offline-player-go/internal/app"
	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

func TestFetchKeyID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/movies/FP/HLS_1-VO-fairplay-download.ism.id":
			w.Write([]byte(" key-123\n"))
		case "/denied":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Access Denied"))
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("<html>403 Forbidden</html>"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewHTTPLicenseClient(NewHTTPClient(), zap.NewNop())

	body, err := client.FetchKeyID(context.Background(), server.URL+"/movies/FP/HLS_1-VO-fairplay-download.ism.id")
	require.NoError(t, err)
	assert.Equal(t, " key-123\n", body)

	body, err = client.FetchKeyID(context.Background(), server.URL+"/denied")
	require.NoError(t, err)
	assert.Equal(t, "Access Denied", body)

	body, err = client.FetchKeyID(context.Background(), server.URL+"/forbidden")
	assert.True(t, domain.IsTransportError(err))
	assert.Empty(t, body)

	_, err = client.FetchKeyID(context.Background(), server.URL+"/broken")
	assert.True(t, domain.IsTransportError(err))
}

func TestResolveKeyID_ForbiddenWithoutMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		if strings.Contains(r.URL.Path, "HLS_1-VO") {
			w.Write([]byte("<Error>Access Denied</Error>"))
			return
		}
		w.Write([]byte("<html>403 Forbidden</html>"))
	}))
	defer server.Close()

	repo, err := NewSQLiteAssetRepository(filepath.Join(t.TempDir(), "assets.db"))
	require.NoError(t, err)
	defer repo.Close()

	broker := app.NewLicenseBroker(NewHTTPLicenseClient(NewHTTPClient(), zap.NewNop()), repo, zap.NewNop())
	desc := domain.NewStreamDescriptor(domain.StreamingConfig{StorageHost: server.URL}, "HLS_1-VO")

	require.ErrorIs(t, broker.ResolveKeyID(context.Background(), desc), domain.ErrAccessDenied)
	assert.Empty(t, desc.FairplayKeyID)

	desc = domain.NewStreamDescriptor(domain.StreamingConfig{StorageHost: server.URL}, "HLS_2-VO")
	err = broker.ResolveKeyID(context.Background(), desc)
	assert.True(t, domain.IsTransportError(err))
	assert.NotErrorIs(t, err, domain.ErrAccessDenied)
	assert.Empty(t, desc.FairplayKeyID, "a forbidden page is not a key id")
}

func TestFetchKeyID_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewHTTPLicenseClient(NewHTTPClient(WithTimeout(time.Second)), zap.NewNop())
	_, err := client.FetchKeyID(context.Background(), url)
	assert.True(t, domain.IsTransportError(err))
}

func TestRequestLicense(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		assert.Equal(t, "alice_arte", r.URL.Query().Get("username"))
		spc, _ := io.ReadAll(r.Body)
		if string(spc) == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write(append([]byte("ckc:"), spc...))
	}))
	defer server.Close()

	client := NewHTTPLicenseClient(NewHTTPClient(), zap.NewNop())
	licenseURL := server.URL + "/api/licenses/key-123?username=alice_arte&contentId=HLS_1-VO"

	ckc, err := client.RequestLicense(context.Background(), licenseURL, []byte("spc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ckc:spc"), ckc)

	_, err = client.RequestLicense(context.Background(), licenseURL, []byte("bad"))
	assert.True(t, domain.IsTransportError(err))
}

func TestRequestLicense_Cancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	client := NewHTTPLicenseClient(NewHTTPClient(), zap.NewNop())
	_, err := client.RequestLicense(ctx, server.URL, []byte("spc"))
	assert.ErrorIs(t, err, context.Canceled)
}
