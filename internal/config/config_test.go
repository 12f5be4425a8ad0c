package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 60, cfg.App.SessionTTLMin)
	assert.Equal(t, "transcript_updates", cfg.App.NotifyChannel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("GO_ENV", "production")
	t.Setenv("SESSION_TTL_MINUTES", "15")
	t.Setenv("OPENAI_MODEL_CHAT", "gpt-4o")

	cfg := Load()
	assert.Equal(t, "9999", cfg.App.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 15, cfg.App.SessionTTLMin)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
}

func TestGetEnvAsIntFallback(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "not-a-number")
	cfg := Load()
	assert.Equal(t, 60, cfg.App.SessionTTLMin)
}
