package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

func TestEventBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	first, unsubFirst := bus.Subscribe()
	second, unsubSecond := bus.Subscribe()
	defer unsubFirst()
	defer unsubSecond()

	bus.Publish(domain.NewEvent(domain.EventDownloadFinished, "Show A", 42))

	for _, ch := range []<-chan domain.Event{first, second} {
		select {
		case event := <-ch:
			assert.Equal(t, domain.EventDownloadFinished, event.Kind)
			assert.Equal(t, 42.0, event.VideoID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestEventBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	ch, unsubscribe := bus.Subscribe()

	unsubscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)

	bus.Publish(domain.NewEvent(domain.EventConnectivityLost, "", 0))
}

func TestEventBus_DropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(domain.NewEvent(domain.EventDownloadInProgress, "Show A", 1))
	}

	assert.Len(t, ch, subscriberBuffer)
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	ch, _ := bus.Subscribe()
	bus.Close()

	_, open := <-ch
	require.False(t, open)

	late, _ := bus.Subscribe()
	_, open = <-late
	assert.False(t, open)
}
