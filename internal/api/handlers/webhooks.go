package handlers

import "net/http"

// ListWebhooks handles GET /api/v1/webhooks: last delivery per configured URL.
func (h *Handler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	if h.webhook == nil {
		ok(w, []interface{}{})
		return
	}
	ok(w, h.webhook.Statuses())
}

// TestWebhook handles POST /api/v1/webhooks/test with body {"url": "..."}.
func (h *Handler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decode(r, &req); err != nil || req.URL == "" {
		fail(w, http.StatusBadRequest, "url is required")
		return
	}
	if h.webhook == nil {
		fail(w, http.StatusServiceUnavailable, "webhooks not configured")
		return
	}
	if err := h.webhook.TestWebhook(r.Context(), req.URL); err != nil {
		fail(w, http.StatusBadGateway, err.Error())
		return
	}
	ok(w, map[string]string{"message": "webhook delivered"})
}
