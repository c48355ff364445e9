package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WORK_DIR", t.TempDir())
	t.Setenv("PORT", "")
	t.Setenv("FLUSH_INTERVAL", "")
	t.Setenv("WEBHOOK_URLS", "")

	cfg := Load()
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.FlushInterval)
	assert.Empty(t, cfg.WebhookURLs)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WORK_DIR", t.TempDir())
	t.Setenv("FLUSH_INTERVAL", "5s")
	t.Setenv("WEBHOOK_URLS", "http://a.example/hook, ,http://b.example/hook")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.FlushInterval)
	assert.Equal(t, []string{"http://a.example/hook", "http://b.example/hook"}, cfg.WebhookURLs)
}

func TestLoad_BadIntervalFallsBack(t *testing.T) {
	t.Setenv("WORK_DIR", t.TempDir())
	t.Setenv("FLUSH_INTERVAL", "soon")
	assert.Equal(t, 2*time.Second, Load().FlushInterval)
}
