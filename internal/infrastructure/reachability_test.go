package infrastructure

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// fakeDialer succeeds while up is true
type fakeDialer struct {
	mu    sync.Mutex
	up    bool
	calls int
}

func (d *fakeDialer) set(up bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.up = up
}

func (d *fakeDialer) dial(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if !d.up {
		return nil, errors.New("connection refused")
	}
	client, server := net.Pipe()
	server.Close()
	return client, nil
}

func newTestMonitor(config domain.ReachabilityConfig, up bool) (*ReachabilityMonitor, *fakeDialer, *recordingPublisher) {
	dialer := &fakeDialer{up: up}
	publisher := &recordingPublisher{}
	m := NewReachabilityMonitor(&config, publisher, zap.NewNop())
	m.dial = dialer.dial
	return m, dialer, publisher
}

func TestReachability_PublishesOnLoss(t *testing.T) {
	m, dialer, publisher := newTestMonitor(domain.ReachabilityConfig{Address: "example.com:443"}, true)
	ctx := context.Background()

	assert.False(t, m.Reachable())
	assert.True(t, m.Check(ctx))
	assert.True(t, m.Reachable())
	assert.Zero(t, publisher.count())

	dialer.set(false)
	assert.False(t, m.Check(ctx))
	assert.False(t, m.Check(ctx))
	require.Equal(t, 1, publisher.count())
	assert.Equal(t, domain.EventConnectivityLost, publisher.events[0].Kind)

	dialer.set(true)
	assert.True(t, m.Check(ctx))
	dialer.set(false)
	m.Check(ctx)
	assert.Equal(t, 2, publisher.count())
}

func TestReachability_UnreachableAtStart(t *testing.T) {
	m, _, publisher := newTestMonitor(domain.ReachabilityConfig{Address: "example.com:443"}, false)

	assert.False(t, m.Check(context.Background()))
	assert.Equal(t, 1, publisher.count())
}

func TestReachability_RunDisabled(t *testing.T) {
	m, dialer, _ := newTestMonitor(domain.ReachabilityConfig{Enabled: false}, true)
	m.Run(context.Background())
	assert.Zero(t, dialer.calls)
}

func TestReachability_RunProbesUntilDone(t *testing.T) {
	m, dialer, _ := newTestMonitor(domain.ReachabilityConfig{
		Enabled:  true,
		Address:  "example.com:443",
		Interval: 10 * time.Millisecond,
	}, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		dialer.mu.Lock()
		defer dialer.mu.Unlock()
		return dialer.calls >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.True(t, m.Reachable())
}
