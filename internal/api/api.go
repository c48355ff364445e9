// Package api sets up the HTTP routes and middleware for ecowatch's REST API.
package api

import (
	"net/http"

	"github.com/yourusername/ecowatch/internal/api/handlers"
	"github.com/yourusername/ecowatch/internal/auth"
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

// Deps holds all dependencies injected into the API handlers.
type Deps struct {
	Stats     *stats.Aggregator
	Store     *store.Store
	Settings  *config.Live
	Sites     *site.Table
	Hub       *ws.Hub
	Ingest    *ingest.Server
	Scheduler *scheduler.Engine
	Webhook   *webhook.Dispatcher
	Notify    *notify.Dispatcher
	Guard     *auth.Guard
}

// SetupRoutes registers all HTTP routes on the given ServeMux.
// Uses Go 1.22 method+pattern routing syntax.
func SetupRoutes(mux *http.ServeMux, deps *Deps) {
	h := handlers.New(deps.Stats, deps.Store, deps.Settings, deps.Sites,
		deps.Hub, deps.Ingest, deps.Scheduler, deps.Webhook, deps.Notify)

	requireToken := func(next http.Handler) http.Handler {
		return deps.Guard.RequireToken(next)
	}

	// ── WebSockets ───────────────────────────────────────────────────────────
	if deps.Hub != nil {
		mux.HandleFunc("GET /ws", deps.Hub.ServeWS)
	}
	if deps.Ingest != nil {
		mux.HandleFunc("GET /ws/observe", deps.Ingest.ServeWS)
	}

	// ── Read-only routes ─────────────────────────────────────────────────────
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /api/v1/stats", h.GetStats)
	mux.HandleFunc("GET /api/v1/stats/history", h.GetHistory)
	mux.HandleFunc("GET /api/v1/stats/export", h.ExportStats)
	mux.HandleFunc("GET /api/v1/budget", h.GetBudget)
	mux.HandleFunc("GET /api/v1/sites", h.ListSites)
	mux.HandleFunc("GET /api/v1/settings", h.GetSettings)
	mux.HandleFunc("GET /api/v1/webhooks", h.ListWebhooks)

	// ── Admin routes ─────────────────────────────────────────────────────────
	mux.Handle("PUT /api/v1/settings", requireToken(http.HandlerFunc(h.UpdateSettings)))
	mux.Handle("POST /api/v1/stats/reset", requireToken(http.HandlerFunc(h.ResetStats)))
	mux.Handle("POST /api/v1/webhooks/test", requireToken(http.HandlerFunc(h.TestWebhook)))
}
