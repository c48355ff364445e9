package handlers

import (
	"net/http"

	"github.com/yourusername/ecowatch/internal/config"
	"github.com/yourusername/ecowatch/internal/store"
)

// GetSettings handles GET /api/v1/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ok(w, h.settings.Get())
}

// UpdateSettings handles PUT /api/v1/settings.
// The body is a partial settings object; each valid field replaces the
// current value and invalid ones are ignored.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	merged := config.MergeOnto(h.settings.Get(), req)
	if err := h.store.Set(r.Context(), map[string]any{store.KeySettings: merged}); err != nil {
		fail(w, http.StatusInternalServerError, "save: "+err.Error())
		return
	}
	h.settings.Set(merged)
	ok(w, merged)
}
