package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

const defaultStatsTimeout = 10 * time.Second

// HTTPStatsReporter sends player telemetry to the stats service
type HTTPStatsReporter struct {
	config *domain.StatsConfig
	http   *HTTPClient
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewHTTPStatsReporter creates a new stats reporter
func NewHTTPStatsReporter(config *domain.StatsConfig, client *HTTPClient, logger *zap.Logger) *HTTPStatsReporter {
	return &HTTPStatsReporter{
		config: config,
		http:   client,
		logger: logger,
	}
}

// Payload builds the body sent for event
func (r *HTTPStatsReporter) Payload(event domain.StatEvent) domain.StatsPayload {
	return domain.StatsPayload{
		ApplicationDomain: event.DomainName,
		SessionID:         event.SessionID,
		BrowserType:       runtime.GOOS,
		BrowserVersion:    runtime.Version(),
		CreationDate:      event.At.Format(domain.StatsDateLayout),
		DrmType:           "HLS",
		EventData:         string(event.Type),
		EventType:         "USER_CLICK",
		PlayerType:        r.config.PlayerType,
		ProgramCode:       r.config.ProgramCode,
		ProgramVersion:    event.ProgramVersion,
		Username:          event.Username,
	}
}

// Report sends event in the background. Failures are logged only.
func (r *HTTPStatsReporter) Report(event domain.StatEvent) {
	if !r.config.Enabled {
		return
	}

	body, err := json.Marshal(r.Payload(event))
	if err != nil {
		r.logger.Warn("Failed to encode stats payload", zap.Error(err))
		return
	}

	url := domain.BaseURL(r.config.Host) + "/stats"
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		timeout := r.config.Timeout
		if timeout <= 0 {
			timeout = defaultStatsTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		resp, err := r.http.Do(ctx, http.MethodPut, url, "application/json; charset=utf-8", body)
		if err != nil {
			r.logger.Warn("Failed to report stats",
				zap.String("type", string(event.Type)),
				zap.Error(err))
			return
		}
		if !resp.OK() {
			r.logger.Warn("Stats service rejected event",
				zap.String("type", string(event.Type)),
				zap.Int("status", resp.StatusCode))
			return
		}
		r.logger.Debug("Stats reported",
			zap.String("type", string(event.Type)),
			zap.String("session_id", event.SessionID))
	}()
}

// Wait blocks until every pending report is done
func (r *HTTPStatsReporter) Wait() {
	r.wg.Wait()
}
