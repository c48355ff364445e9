package handlers

import "net/http"

// ListSites handles GET /api/v1/sites.
func (h *Handler) ListSites(w http.ResponseWriter, r *http.Request) {
	ok(w, h.sites.Definitions())
}
