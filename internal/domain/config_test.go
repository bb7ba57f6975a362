package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8089, config.Server.Port)
	assert.Equal(t, "https://fps.ezdrm.com", config.Streaming.LicenseHost)
	assert.Equal(t, 265000, config.Download.MinimumBitrate)
	assert.Equal(t, 90, config.Download.CompletionThreshold)
	assert.Equal(t, 60*time.Second, config.Download.RequestTimeout)
	assert.True(t, config.Stats.Enabled)
	assert.Equal(t, "EM", config.Stats.ProgramCode)
	assert.Equal(t, 15*time.Second, config.Reachability.Interval)
	assert.False(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}
