package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const maxHistoryDays = 366

// GetStats handles GET /api/v1/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.Summary(r.Context())
	if err != nil {
		fail(w, http.StatusInternalServerError, "summary: "+err.Error())
		return
	}
	ok(w, s)
}

// GetHistory handles GET /api/v1/stats/history?days=N (default 7).
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryDays {
			fail(w, http.StatusBadRequest, fmt.Sprintf("days must be 1..%d", maxHistoryDays))
			return
		}
		days = n
	}
	hist, err := h.stats.History(r.Context(), days)
	if err != nil {
		fail(w, http.StatusInternalServerError, "history: "+err.Error())
		return
	}
	ok(w, hist)
}

// ExportStats handles GET /api/v1/stats/export as a JSON download.
func (h *Handler) ExportStats(w http.ResponseWriter, r *http.Request) {
	exp, err := h.stats.Export(r.Context())
	if err != nil {
		fail(w, http.StatusInternalServerError, "export: "+err.Error())
		return
	}
	name := fmt.Sprintf("ecowatch-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(exp)
}

// GetBudget handles GET /api/v1/budget.
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	st, err := h.stats.BudgetStatus(r.Context(), h.settings.Get().DailyLimitCo2Grams)
	if err != nil {
		fail(w, http.StatusInternalServerError, "budget: "+err.Error())
		return
	}
	ok(w, st)
}

// ResetStats handles POST /api/v1/stats/reset.
func (h *Handler) ResetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.stats.Reset(ctx); err != nil {
		fail(w, http.StatusInternalServerError, "reset: "+err.Error())
		return
	}
	if h.notify != nil {
		h.notify.Send("stats.reset", map[string]string{"by": r.RemoteAddr})
	}
	if h.hub != nil {
		if s, err := h.stats.Summary(ctx); err == nil {
			h.hub.BroadcastStats(s)
		}
	}
	ok(w, map[string]string{"message": "statistics reset"})
}
