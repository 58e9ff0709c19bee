package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"logging": {"level": "debug", "console": true},
		"scheduler": {"enabled": true, "tick": "30s"},
		"quota": {"max_per_owner": 5},
		"storage": {"driver": "sqlite", "path": "./shiftd.db", "busy_timeout": "2s"}
	}`)

	cfg, err := NewManager(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 5, cfg.Quota.MaxPerOwner)
	require.NotNil(t, cfg.Storage)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
logging:
  level: info
  console: true
scheduler:
  enabled: true
  tick: 1m
notify:
  enabled: true
  webhook_url: http://localhost:9000/hook
  retry_base: 500ms
`)

	cfg, err := NewManager(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NotNil(t, cfg.Notify)
	assert.Equal(t, "http://localhost:9000/hook", cfg.Notify.WebhookURL)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "config.json", `{"logging": {"level": "info"}, "sheduler": {"enabled": true}}`)
	_, err := NewManager(path).Load()
	assert.Error(t, err)
}

func TestLoadRejectsTrailingData(t *testing.T) {
	path := writeFile(t, "config.json", `{"logging": {"level": "info"}} {"extra": 1}`)
	_, err := NewManager(path).Load()
	assert.Error(t, err)
}

func TestParseDurationHelpers(t *testing.T) {
	d, err := ParseDurationField("notify.retry_base", "750ms")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, d)

	d, err = ParseDurationField("notify.retry_base", "")
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = ParseDurationField("notify.retry_base", "three seconds")
	assert.Error(t, err)
	_, err = ParseDurationField("notify.retry_base", "-1s")
	assert.Error(t, err)

	d, err = ParseDurationOrDefault("scheduler.tick", "", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}
