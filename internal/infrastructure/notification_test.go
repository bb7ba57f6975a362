package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

type recordedCommand struct {
	name string
	args []string
}

func newTestNotifier(config domain.NotificationConfig, runErr error) (*NotificationService, *[]recordedCommand) {
	var commands []recordedCommand
	n := NewNotificationService(&config, zap.NewNop())
	n.run = func(name string, args ...string) error {
		commands = append(commands, recordedCommand{name: name, args: args})
		return runErr
	}
	return n, &commands
}

func TestSend_Disabled(t *testing.T) {
	n, commands := newTestNotifier(domain.NotificationConfig{Enabled: false, Method: "notify-send"}, nil)
	assert.NoError(t, n.Send("title", "message"))
	assert.Empty(t, *commands)
}

func TestSend_NotifySend(t *testing.T) {
	n, commands := newTestNotifier(domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)
	require.NoError(t, n.Send("Download Completed", "Show A"))
	require.Len(t, *commands, 1)
	assert.Equal(t, "notify-send", (*commands)[0].name)
	assert.Equal(t, []string{"Download Completed", "Show A"}, (*commands)[0].args)
}

func TestSend_OSAScriptEscapesQuotes(t *testing.T) {
	n, commands := newTestNotifier(domain.NotificationConfig{Enabled: true, Method: "osascript", Sound: true}, nil)
	require.NoError(t, n.Send("Done", `The "Show"`))
	require.Len(t, *commands, 1)
	assert.Equal(t, []string{"-e", `display notification "The \"Show\"" with title "Done" sound name "Glass"`}, (*commands)[0].args)
}

func TestSend_Failure(t *testing.T) {
	n, _ := newTestNotifier(domain.NotificationConfig{Enabled: true, Method: "notify-send"}, errors.New("not installed"))
	assert.Error(t, n.Send("title", "message"))

	n, commands := newTestNotifier(domain.NotificationConfig{Enabled: true, Method: "pigeon"}, nil)
	assert.NoError(t, n.Send("title", "message"))
	assert.Empty(t, *commands)
}

func TestWatch_NotifiesDomainEvents(t *testing.T) {
	n, commands := newTestNotifier(domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)

	events := make(chan domain.Event, 4)
	events <- domain.NewEvent(domain.EventDownloadInProgress, "Show A", 1)
	events <- domain.NewEvent(domain.EventDownloadFinished, "Show A", 1)
	events <- domain.NewEvent(domain.EventDownloadCancelled, "Show B", 2)
	events <- domain.NewEvent(domain.EventConnectivityLost, "", 0)
	close(events)

	done := make(chan struct{})
	go func() {
		n.Watch(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return after the channel closed")
	}

	require.Len(t, *commands, 3)
	assert.Equal(t, "Download Completed", (*commands)[0].args[0])
	assert.Equal(t, "Download Cancelled", (*commands)[1].args[0])
	assert.Equal(t, "Connection Lost", (*commands)[2].args[0])
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abc...", truncateString("abcdef", 3))
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "notify-send title", commandLine("notify-send", "title"))
	assert.Equal(t, "notify-send 'Download Completed' ''", commandLine("notify-send", "Download Completed", ""))
	assert.Equal(t, `osascript -e 'display "it'"'"'s"'`, commandLine("osascript", "-e", `display "it's"`))
}
