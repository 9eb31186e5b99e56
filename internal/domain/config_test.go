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
	assert.Equal(t, 8080, config.Server.Port)
	assert.True(t, config.Download.CreateOutputDir)
	assert.Equal(t, "yt-dlp", config.Tool.Binary)
	assert.Equal(t, 10*time.Second, config.Update.CheckTimeout)
	assert.Equal(t, 30*time.Second, config.Update.FetchTimeout)
	assert.Equal(t, ".zip", config.Update.PackageSuffix)
	assert.Equal(t, []string{"flare", "VERSION", "deps.json"}, config.Update.ManagedFiles)
	assert.False(t, config.Update.CheckOnStartup)
	assert.True(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, 10, config.Logging.MaxSizeMB)
}
