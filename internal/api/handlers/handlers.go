// Package handlers provides HTTP handler implementations for the ecowatch REST API.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/yourusername/ecowatch/internal/config"
	"github.com/yourusername/ecowatch/internal/ingest"
	"github.com/yourusername/ecowatch/internal/notify"
	"github.com/yourusername/ecowatch/internal/scheduler"
	"github.com/yourusername/ecowatch/internal/site"
	"github.com/yourusername/ecowatch/internal/stats"
	"github.com/yourusername/ecowatch/internal/store"
	"github.com/yourusername/ecowatch/internal/webhook"
	"github.com/yourusername/ecowatch/internal/ws"
)

// Handler holds all shared dependencies for API handler methods.
// Everything except stats, store and settings may be nil.
type Handler struct {
	stats     *stats.Aggregator
	store     *store.Store
	settings  *config.Live
	sites     *site.Table
	hub       *ws.Hub
	ingest    *ingest.Server
	scheduler *scheduler.Engine
	webhook   *webhook.Dispatcher
	notify    *notify.Dispatcher
	started   time.Time
}

// New creates a Handler with all dependencies.
func New(
	agg *stats.Aggregator,
	st *store.Store,
	settings *config.Live,
	sites *site.Table,
	hub *ws.Hub,
	in *ingest.Server,
	sched *scheduler.Engine,
	wh *webhook.Dispatcher,
	notifier *notify.Dispatcher,
) *Handler {
	if sites == nil {
		sites = site.Default()
	}
	return &Handler{
		stats:     agg,
		store:     st,
		settings:  settings,
		sites:     sites,
		hub:       hub,
		ingest:    in,
		scheduler: sched,
		webhook:   wh,
		notify:    notifier,
		started:   time.Now(),
	}
}

// ── Response helpers ──────────────────────────────────────────────────────────

type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response{Success: true, Data: data})
}

func fail(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response{Success: false, Error: msg})
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
