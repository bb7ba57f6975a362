package infrastructure

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

// EventPublisher accepts domain events
type EventPublisher interface {
	Publish(event domain.Event)
}

// ReachabilityMonitor dials a well-known address periodically and publishes
// connectivity_lost whenever it stops answering
type ReachabilityMonitor struct {
	config    *domain.ReachabilityConfig
	publisher EventPublisher
	logger    *zap.Logger
	dial      func(ctx context.Context, network, address string) (net.Conn, error)

	mu        sync.RWMutex
	known     bool
	reachable bool
}

// NewReachabilityMonitor creates a new reachability monitor
func NewReachabilityMonitor(config *domain.ReachabilityConfig, publisher EventPublisher, logger *zap.Logger) *ReachabilityMonitor {
	dialer := &net.Dialer{}
	return &ReachabilityMonitor{
		config:    config,
		publisher: publisher,
		logger:    logger,
		dial:      dialer.DialContext,
	}
}

// Reachable reports the last observed state; it is false before the first check
func (m *ReachabilityMonitor) Reachable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reachable
}

// Check dials the address once and records the result
func (m *ReachabilityMonitor) Check(ctx context.Context) bool {
	timeout := m.config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reachable := false
	conn, err := m.dial(dialCtx, "tcp", m.config.Address)
	if err == nil {
		conn.Close()
		reachable = true
	}

	m.mu.Lock()
	lost := !reachable && (m.reachable || !m.known)
	changed := !m.known || m.reachable != reachable
	m.known = true
	m.reachable = reachable
	m.mu.Unlock()

	if changed {
		m.logger.Info("Reachability changed",
			zap.String("address", m.config.Address),
			zap.Bool("reachable", reachable),
			zap.Error(err))
	}
	if lost {
		m.publisher.Publish(domain.NewEvent(domain.EventConnectivityLost, "", 0))
	}
	return reachable
}

// Run checks reachability until ctx is done
func (m *ReachabilityMonitor) Run(ctx context.Context) {
	if !m.config.Enabled {
		return
	}

	interval := m.config.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
