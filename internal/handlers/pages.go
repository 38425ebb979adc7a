package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// HandleIndexPage handles GET /
func (h *Handler) HandleIndexPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.handleNotFound(w, "Page not found")
		return
	}
	h.renderTemplate(w, "index.html", map[string]interface{}{
		"Title":   "Barrier Router",
		"Version": h.Version,
	})
}

func (h *Handler) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	if h.Templates == nil {
		h.handleNotFound(w, "Page not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.Templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger().Error("[ERROR] Failed to render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
