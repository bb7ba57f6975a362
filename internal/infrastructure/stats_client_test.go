package infrastructure

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

func TestStatsReporter_Report(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []domain.StatsPayload
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/stats", r.URL.Path)
		var payload domain.StatsPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		mu.Lock()
		payloads = append(payloads, payload)
		mu.Unlock()
	}))
	defer server.Close()

	config := &domain.StatsConfig{Enabled: true, Host: server.URL + "/", PlayerType: "go", ProgramCode: "EM", Timeout: time.Second}
	reporter := NewHTTPStatsReporter(config, NewHTTPClient(), zap.NewNop())

	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	reporter.Report(domain.StatEvent{
		Type:           domain.StatVideoPlay,
		SessionID:      "session-1",
		Username:       "alice",
		DomainName:     "arte",
		ProgramVersion: "VO",
		At:             at,
	})
	reporter.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, payloads, 1)
	got := payloads[0]
	assert.Equal(t, "arte", got.ApplicationDomain)
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, "VIDEO_PLAY", got.EventData)
	assert.Equal(t, "USER_CLICK", got.EventType)
	assert.Equal(t, "HLS", got.DrmType)
	assert.Equal(t, "go", got.PlayerType)
	assert.Equal(t, "EM", got.ProgramCode)
	assert.Equal(t, "VO", got.ProgramVersion)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "2024-03-01T10:30:00+0000", got.CreationDate)
}

func TestStatsReporter_FailuresAreSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	reporter := NewHTTPStatsReporter(&domain.StatsConfig{Enabled: true, Host: server.URL}, NewHTTPClient(), zap.NewNop())
	assert.NotPanics(t, func() {
		reporter.Report(domain.StatEvent{Type: domain.StatPlayerInit, At: time.Now()})
		reporter.Wait()
	})

	disabled := NewHTTPStatsReporter(&domain.StatsConfig{Enabled: false, Host: "http://127.0.0.1:1"}, NewHTTPClient(), zap.NewNop())
	disabled.Report(domain.StatEvent{Type: domain.StatPlayerInit, At: time.Now()})
	disabled.Wait()
}
