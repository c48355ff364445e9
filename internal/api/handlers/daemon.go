package handlers

import (
	"net/http"
	"time"
)

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"pending":        h.stats.Pending(),
		"flush_disabled": h.stats.Disabled(),
		"started_at":     h.started.Format(time.RFC3339),
		"uptime":         time.Since(h.started).Round(time.Second).String(),
	}
	if h.hub != nil {
		data["ws_clients"] = h.hub.ClientCount()
	}
	if h.ingest != nil {
		data["sessions"] = h.ingest.SessionCount()
	}
	if h.scheduler != nil {
		data["flush_scheduled"] = h.scheduler.Active()
	}
	ok(w, data)
}
