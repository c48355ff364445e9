package config

import (
	"encoding/json"
	"math"
	"strconv"
	"sync"
)

// Settings are the user-editable conversion constants and feature switches.
type Settings struct {
	WhPerRequest        float64 `json:"whPerRequest" yaml:"whPerRequest"`
	MlPerToken          float64 `json:"mlPerToken" yaml:"mlPerToken"`
	KgCo2PerKwh         float64 `json:"kgCo2PerKwh" yaml:"kgCo2PerKwh"`
	YenPerKwh           float64 `json:"yenPerKwh" yaml:"yenPerKwh"`
	YenPerM3            float64 `json:"yenPerM3" yaml:"yenPerM3"`
	DailyLimitCo2Grams  float64 `json:"dailyLimitCo2Grams" yaml:"dailyLimitCo2Grams"`
	EnableNudge         bool    `json:"enableNudge" yaml:"enableNudge"`
	AppendedConciseText string  `json:"appendedConciseText" yaml:"appendedConciseText"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		WhPerRequest:        18,
		MlPerToken:          3.75,
		KgCo2PerKwh:         0.8,
		YenPerKwh:           24,
		YenPerM3:            200,
		DailyLimitCo2Grams:  100,
		EnableNudge:         true,
		AppendedConciseText: "Please answer concisely.",
	}
}

// MergeSettings overlays overrides onto the defaults field by field.
// Missing, mistyped, negative or non-finite values keep their default.
func MergeSettings(overrides map[string]any) Settings {
	return MergeOnto(DefaultSettings(), overrides)
}

// MergeOnto overlays overrides onto base field by field.
func MergeOnto(base Settings, overrides map[string]any) Settings {
	s := base
	mergeFloat(&s.WhPerRequest, overrides["whPerRequest"])
	mergeFloat(&s.MlPerToken, overrides["mlPerToken"])
	mergeFloat(&s.KgCo2PerKwh, overrides["kgCo2PerKwh"])
	mergeFloat(&s.YenPerKwh, overrides["yenPerKwh"])
	mergeFloat(&s.YenPerM3, overrides["yenPerM3"])
	mergeFloat(&s.DailyLimitCo2Grams, overrides["dailyLimitCo2Grams"])
	if b, ok := toBool(overrides["enableNudge"]); ok {
		s.EnableNudge = b
	}
	if v, ok := overrides["appendedConciseText"].(string); ok {
		s.AppendedConciseText = v
	}
	return s
}

// DecodeSettings merges a stored JSON settings object onto the defaults.
// Malformed JSON yields the defaults.
func DecodeSettings(raw []byte) Settings {
	var m map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return DefaultSettings()
	}
	return MergeSettings(m)
}

func mergeFloat(dst *float64, v any) {
	if f, ok := toFloat(v); ok && f >= 0 && !math.IsInf(f, 0) && !math.IsNaN(f) {
		*dst = f
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		// Option forms historically stored numbers as text.
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		p, err := strconv.ParseBool(b)
		return p, err == nil
	}
	return false, false
}

// Live is the process-wide settings context. It is built once, handed to each
// component, and updated in place when the stored settings change.
type Live struct {
	mu sync.RWMutex
	s  Settings
}

// NewLive creates a Live holding s.
func NewLive(s Settings) *Live {
	return &Live{s: s}
}

// Get returns a copy of the current settings.
func (l *Live) Get() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.s
}

// Set replaces the current settings.
func (l *Live) Set(s Settings) {
	l.mu.Lock()
	l.s = s
	l.mu.Unlock()
}

// NudgeEnabled reports whether the nudge heuristic is switched on.
func (l *Live) NudgeEnabled() bool {
	return l.Get().EnableNudge
}
