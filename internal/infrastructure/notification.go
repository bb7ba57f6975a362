package infrastructure

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService handles sending desktop notifications
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var args []string
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, appleScriptEscape(message), appleScriptEscape(title))
		if n.config.Sound {
			script += ` sound name "Glass"`
		}
		args = []string{"-e", script}
	case "notify-send":
		args = []string{title, message}
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err := n.run(n.config.Method, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.String("command", commandLine(n.config.Method, args...)),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("command", commandLine(n.config.Method, args...)))
	return nil
}

// Watch turns events into notifications until ctx is done or events is closed
func (n *NotificationService) Watch(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			n.Notify(event)
		}
	}
}

// Notify sends the notification matching event. Progress events are not notified.
func (n *NotificationService) Notify(event domain.Event) {
	switch event.Kind {
	case domain.EventDownloadFinished:
		n.Send("Download Completed", fmt.Sprintf("Ready to watch offline: %s", truncateString(event.Title, 40)))
	case domain.EventDownloadPaused:
		n.Send("Download Paused", truncateString(event.Title, 40))
	case domain.EventDownloadFailed:
		n.Send("Download Failed", fmt.Sprintf("Failed: %s", truncateString(event.Title, 40)))
	case domain.EventDownloadCancelled:
		n.Send("Download Cancelled", truncateString(event.Title, 40))
	case domain.EventConnectivityLost:
		n.Send("Connection Lost", "Downloads will continue when the network is back")
	case domain.EventKeyExchangeError:
		n.Send("License Error", fmt.Sprintf("Could not license %s", truncateString(event.Title, 40)))
	}
}

// appleScriptEscape escapes backslashes and double quotes inside an AppleScript string literal
func appleScriptEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// commandLine renders a command as it would be typed in a shell, for logs only
func commandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	for _, part := range append([]string{name}, args...) {
		parts = append(parts, shellQuote(part))
	}
	return strings.Join(parts, " ")
}

// shellQuote single-quotes s when it contains shell metacharacters
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t'\"$`\\!*?[](){}|;<>&~#%\n\r") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
