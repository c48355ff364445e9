package config

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSettings_Defaults(t *testing.T) {
	assert.Equal(t, DefaultSettings(), MergeSettings(nil))
}

func TestMergeSettings_PartialOverride(t *testing.T) {
	s := MergeSettings(map[string]any{
		"whPerRequest": 3.0,
		"enableNudge":  false,
	})
	assert.Equal(t, 3.0, s.WhPerRequest)
	assert.False(t, s.EnableNudge)
	assert.Equal(t, 0.8, s.KgCo2PerKwh, "unspecified fields keep defaults")
	assert.Equal(t, "Please answer concisely.", s.AppendedConciseText)
}

func TestMergeSettings_MalformedFieldsFallBackIndividually(t *testing.T) {
	s := MergeSettings(map[string]any{
		"whPerRequest":       "not a number",
		"kgCo2PerKwh":        -1.0,
		"mlPerToken":         math.Inf(1),
		"yenPerKwh":          "30",
		"enableNudge":        "maybe",
		"dailyLimitCo2Grams": 250,
	})
	d := DefaultSettings()
	assert.Equal(t, d.WhPerRequest, s.WhPerRequest)
	assert.Equal(t, d.KgCo2PerKwh, s.KgCo2PerKwh)
	assert.Equal(t, d.MlPerToken, s.MlPerToken)
	assert.Equal(t, 30.0, s.YenPerKwh)
	assert.True(t, s.EnableNudge)
	assert.Equal(t, 250.0, s.DailyLimitCo2Grams)
}

func TestDecodeSettings(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"yenPerM3": 150})
	assert.Equal(t, 150.0, DecodeSettings(raw).YenPerM3)
	assert.Equal(t, DefaultSettings(), DecodeSettings([]byte("{broken")))
	assert.Equal(t, DefaultSettings(), DecodeSettings(nil))
}

func TestLive(t *testing.T) {
	l := NewLive(DefaultSettings())
	assert.True(t, l.NudgeEnabled())
	s := l.Get()
	s.EnableNudge = false
	l.Set(s)
	assert.False(t, l.NudgeEnabled())
}

func TestReadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("whPerRequest: 4.5\nenableNudge: false\n"), 0o644))

	overrides, err := ReadSettingsFile(path)
	require.NoError(t, err)
	s := MergeSettings(overrides)
	assert.Equal(t, 4.5, s.WhPerRequest)
	assert.False(t, s.EnableNudge)
}

func TestWatchSettingsFile_InitialLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("yenPerKwh: 31\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan map[string]any, 4)
	go func() {
		_ = WatchSettingsFile(ctx, path, func(m map[string]any) error {
			got <- m
			return nil
		})
	}()

	select {
	case m := <-got:
		assert.Equal(t, 31.0, MergeSettings(m).YenPerKwh)
	case <-time.After(5 * time.Second):
		t.Fatal("settings file was not applied")
	}
}
