package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"barrier-router/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryResponse is a page of solve records
type HistoryResponse struct {
	Records []models.SolveRecord `json:"records"`
	Total   int                  `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

// HandleListHistory handles GET /api/v1/history
func (h *Handler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		h.writeJSON(w, http.StatusOK, HistoryResponse{Records: []models.SolveRecord{}, Limit: defaultHistoryLimit})
		return
	}

	limit, ok := h.queryInt(w, r, "limit", defaultHistoryLimit)
	if !ok {
		return
	}
	offset, ok := h.queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var (
		records []models.SolveRecord
		total   int
		err     error
	)
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		records, err = h.History.ListBySession(r.Context(), sessionID)
		total = len(records)
	} else {
		records, total, err = h.History.List(r.Context(), limit, offset)
	}
	if err != nil {
		h.handleInternalError(w, err)
		return
	}
	if records == nil {
		records = []models.SolveRecord{}
	}

	h.writeJSON(w, http.StatusOK, HistoryResponse{
		Records: records,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// HandleHealthCheck handles GET /api/v1/health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	database := "connected"
	code := http.StatusOK

	if h.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Health.HealthCheck(ctx); err != nil {
			h.logger().Warn("[HEALTH] Database check failed", zap.Error(err))
			status = "degraded"
			database = "unavailable"
			code = http.StatusServiceUnavailable
		}
	} else {
		database = "disabled"
	}

	h.writeJSON(w, code, map[string]interface{}{
		"status":   status,
		"version":  h.Version,
		"database": database,
		"sessions": h.Sessions.Len(),
	})
}

func (h *Handler) queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		h.handleValidationError(w, "Invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}
