package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ecowatch/internal/config"
	"github.com/yourusername/ecowatch/internal/site"
	"github.com/yourusername/ecowatch/internal/stats"
)

const frames = `{"type":"snapshot","url":"https://chatgpt.com/c/1","html":"<html><body><main></main><textarea id=\"prompt-textarea\"></textarea></body></html>"}

{"type":"batch","batch":{"seq":1,"records":[{"op":"insert","xpath":"/html/body/main/div","node_type":1,"html":"<div data-message-author-role=\"user\">abcdabcdabcdabcdabcdabcdabcd</div>"}]}}
{"type":"input","xpath":"/html/body/textarea","text":"!!!!!!"}
{"type":"input","xpath":"/html/body/textarea","text":""}
`

func TestReplay(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, replay(strings.NewReader(frames), &out, site.Default()))

	s := out.String()
	assert.Contains(t, s, `"type":"show_warning"`)
	assert.Contains(t, s, `"type":"hide_warning"`)
	assert.Contains(t, s, "requests=1 tokens=7 avoided=1 batches=1")
}

func TestReplayBadLine(t *testing.T) {
	var out bytes.Buffer
	err := replay(strings.NewReader("{\"type\":\"snapshot\"}\nnot json\n"), &out, site.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type memKV struct{ sets int }

func (m *memKV) Get(context.Context, ...string) (map[string]json.RawMessage, error) {
	return map[string]json.RawMessage{}, nil
}

func (m *memKV) Set(context.Context, map[string]any) error {
	m.sets++
	return nil
}

func TestWatchSettingsMissingDirDoesNotFail(t *testing.T) {
	live := config.NewLive(config.DefaultSettings())
	kv := &memKV{}
	missing := filepath.Join(t.TempDir(), "nope", "settings.yaml")

	done := make(chan struct{})
	go func() {
		watchSettings(context.Background(), missing, live, kv)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watchSettings did not return")
	}
	assert.Equal(t, 0, kv.sets)
	assert.Equal(t, config.DefaultSettings(), live.Get())
}

func TestPrintSummaryAndHistory(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, stats.Summary{
		Totals: stats.Totals{Requests: 12, Tokens: 3400, Avoided: 2},
		Today:  stats.DaySummary{Date: "2026-10-16", Requests: 4},
		Budget: stats.BudgetStatus{Percent: 85, LimitGrams: 100},
	})
	s := out.String()
	assert.Contains(t, s, "Requests")
	assert.Contains(t, s, "3400")
	assert.Contains(t, s, "orange")

	out.Reset()
	printHistory(&out, []stats.DaySummary{{Date: "2026-10-16", Requests: 4, Tokens: 90, Co2Grams: 57.6}})
	assert.Contains(t, out.String(), "2026-10-16")
	assert.Contains(t, out.String(), "57.60")
}
