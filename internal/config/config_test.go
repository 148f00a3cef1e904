package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GITHUB_WEBHOOK_SECRET", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("GITHUB_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "8080", cfg.RESTPort)
	assert.Equal(t, 10*time.Second, cfg.GitHubTimeout)
	assert.False(t, cfg.TemporalEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GITHUB_WEBHOOK_SECRET", "s3cret")
	t.Setenv("GITHUB_API_URL", "http://ghe.local/api/v3/")
	t.Setenv("GITHUB_TIMEOUT", "3")
	t.Setenv("INFERENCE_TIMEOUT", "1500ms")
	t.Setenv("TEMPORAL_ADDRESS", "localhost:7233")

	cfg := Load()

	assert.Equal(t, "s3cret", cfg.WebhookSecret)
	assert.Equal(t, "http://ghe.local/api/v3", cfg.GitHubAPIURL)
	assert.Equal(t, 3*time.Second, cfg.GitHubTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.InferenceTimeout)
	assert.True(t, cfg.TemporalEnabled())
}

func TestGetDuration_Invalid(t *testing.T) {
	t.Setenv("SOME_TIMEOUT", "soon")
	assert.Equal(t, time.Minute, getDuration("SOME_TIMEOUT", time.Minute))
}
