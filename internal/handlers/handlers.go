package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"barrier-router/internal/models"
	"barrier-router/internal/request"
	"barrier-router/internal/session"
)

// HistoryReader lists persisted solve attempts
type HistoryReader interface {
	List(ctx context.Context, limit, offset int) ([]models.SolveRecord, int, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.SolveRecord, error)
}

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler provides common handler utilities and dependencies
type Handler struct {
	Sessions  *session.Store
	Events    *EventFeed
	History   HistoryReader
	Health    HealthChecker
	Templates *template.Template
	Version   string
	Logger    *zap.Logger

	validate *validator.Validate
}

// New creates a Handler with its request validator
func New(sessions *session.Store, events *EventFeed, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Sessions: sessions,
		Events:   events,
		Logger:   logger,
		Version:  "1.0.0",
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, err error) {
	h.logger().Error("[ERROR] Internal error", zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// requestErrorStatus maps a request error code to an HTTP status
func requestErrorStatus(code request.Code) int {
	switch code {
	case request.CodeSolverNotReady:
		return http.StatusServiceUnavailable
	case request.CodeInsufficientStops, request.CodeInsufficientFacilities:
		return http.StatusUnprocessableEntity
	case request.CodeActionNotAllowed:
		return http.StatusConflict
	case request.CodeNoDirections:
		return http.StatusNotFound
	case request.CodeSolverExecutionFailed:
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

// errorDetail converts a request error into its API form
func errorDetail(rerr *request.RequestError) *ErrorDetail {
	return &ErrorDetail{
		Code:    string(rerr.Code),
		Message: rerr.Message,
		Details: map[string]string{"title": rerr.Title},
	}
}

// handleSessionError writes the response for an error returned by a session
func (h *Handler) handleSessionError(w http.ResponseWriter, err error) {
	var rerr *request.RequestError
	if errors.As(err, &rerr) {
		d := errorDetail(rerr)
		h.writeError(w, requestErrorStatus(rerr.Code), d.Code, d.Message, d.Details)
		return
	}
	if errors.Is(err, session.ErrClosed) {
		h.writeError(w, http.StatusGone, "SESSION_CLOSED", "Session has been closed", nil)
		return
	}
	h.handleInternalError(w, err)
}

// lookupSession resolves the :id route parameter, writing a 404 if absent
func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	sess := h.Sessions.Get(id)
	if sess == nil {
		h.logger().Debug("[HTTP] Session not found", zap.String("session_id", id))
		h.handleNotFound(w, "Session not found")
		return nil, false
	}
	return sess, true
}

// decode reads a JSON body into dst and validates it
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.handleValidationError(w, "Invalid request body")
		return false
	}
	if err := h.validator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			h.handleValidationError(w, fmt.Sprintf("Invalid field %s: %s", verrs[0].Field(), verrs[0].Tag()))
			return false
		}
		h.handleValidationError(w, err.Error())
		return false
	}
	return true
}

func (h *Handler) validator() *validator.Validate {
	if h.validate == nil {
		h.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return h.validate
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
