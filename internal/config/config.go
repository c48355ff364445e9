// Package config loads daemon configuration from environment variables
// and holds the user-editable settings that drive the estimators and nudges.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/ecowatch/internal/platform"
)

// Config holds all runtime configuration for ecowatch.
type Config struct {
	Port         string
	WorkDir      string
	DBPath       string
	SitesFile    string
	SettingsFile string

	FlushInterval time.Duration

	AdminToken string

	TelegramToken  string
	TelegramChatID int64

	WebhookURLs []string
}

// Load reads environment variables and returns a Config.
// Every field falls back to a default on its own; nothing here is required.
func Load() *Config {
	workDir := getEnv("WORK_DIR", platform.DefaultWorkDir())

	chatID, _ := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)

	cfg := &Config{
		Port:         getEnv("PORT", "8090"),
		WorkDir:      workDir,
		DBPath:       getEnv("DB_PATH", filepath.Join(workDir, "ecowatch.db")),
		SitesFile:    os.Getenv("SITES_FILE"),
		SettingsFile: os.Getenv("SETTINGS_FILE"),

		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 2*time.Second),

		AdminToken: getEnv("ADMIN_TOKEN", "changeme"),

		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: chatID,

		WebhookURLs: splitList(os.Getenv("WEBHOOK_URLS")),
	}
	if cfg.FlushInterval < time.Second { // cron @every has one-second resolution
		log.Printf("config: FLUSH_INTERVAL %s too small, using 2s", cfg.FlushInterval)
		cfg.FlushInterval = 2 * time.Second
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("config: invalid %s=%q, using %s", key, v, fallback)
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
