package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"barrier-router/internal/models"
	"barrier-router/internal/request"
	"barrier-router/internal/session"
)

// DefaultSolveWait bounds how long a solve request with wait=true blocks
const DefaultSolveWait = 90 * time.Second

// CreateSessionRequest is the request body for opening a screen
type CreateSessionRequest struct {
	Kind    models.SolveKind `json:"kind" validate:"required,oneof=route service_area"`
	Variant session.Variant  `json:"variant" validate:"omitempty,oneof=standard extended"`
}

// SetModeRequest is the request body for switching the entry mode
type SetModeRequest struct {
	Mode session.Mode `json:"mode"`
}

// OptionsRequest is the request body for changing solve options. Route
// screens read the sequencing toggles; service area screens read the rest.
type OptionsRequest struct {
	FindBestSequence  bool                 `json:"find_best_sequence"`
	PreserveFirstStop bool                 `json:"preserve_first_stop"`
	PreserveLastStop  bool                 `json:"preserve_last_stop"`
	Cutoffs           []float64            `json:"cutoffs" validate:"omitempty,dive,gt=0"`
	PolygonDetail     models.PolygonDetail `json:"polygon_detail" validate:"omitempty,oneof=low standard high"`
}

// TapRequest is a map tap in WGS84
type TapRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required"`
}

// TapResponse is the mutation a tap caused, plus its map features
type TapResponse struct {
	Mutation session.Mutation           `json:"mutation"`
	Features *geojson.FeatureCollection `json:"features"`
}

// SessionResponse is a session snapshot with its overlays
type SessionResponse struct {
	session.Snapshot
	LastEvent int64                      `json:"last_event"`
	LastError *ErrorDetail               `json:"last_error,omitempty"`
	Overlays  *geojson.FeatureCollection `json:"overlays"`
}

// OutcomeResponse is the result of a finished solve
type OutcomeResponse struct {
	session.Outcome
	Error    *ErrorDetail               `json:"error,omitempty"`
	Features *geojson.FeatureCollection `json:"features,omitempty"`
}

// routeScreen is implemented by route sessions
type routeScreen interface {
	SetOptions(opts models.RouteOptions) error
	Directions() ([]models.DirectionManeuver, error)
}

// serviceAreaScreen is implemented by service area sessions
type serviceAreaScreen interface {
	SetOptions(opts models.ServiceAreaOptions) error
}

// HandleCreateSession handles POST /api/v1/sessions
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.Sessions.Create(req.Kind, req.Variant)
	if err != nil {
		h.handleInternalError(w, err)
		return
	}
	h.writeSession(w, http.StatusCreated, sess)
}

// HandleGetSession handles GET /api/v1/sessions/:id
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// HandleDeleteSession handles DELETE /api/v1/sessions/:id
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	h.Sessions.Delete(sess.ID())
	if h.Events != nil {
		h.Events.Drop(sess.ID())
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetMode handles PUT /api/v1/sessions/:id/mode
func (h *Handler) HandleSetMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req SetModeRequest
	if !h.decode(w, r, &req) {
		return
	}

	aff, err := sess.SetMode(req.Mode)
	if err != nil {
		h.handleSessionError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"mode":        req.Mode,
		"affordances": aff,
	})
}

// HandleSetOptions handles PUT /api/v1/sessions/:id/options
func (h *Handler) HandleSetOptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req OptionsRequest
	if !h.decode(w, r, &req) {
		return
	}

	var err error
	switch s := sess.(type) {
	case routeScreen:
		err = s.SetOptions(models.RouteOptions{
			FindBestSequence:  req.FindBestSequence,
			PreserveFirstStop: req.PreserveFirstStop,
			PreserveLastStop:  req.PreserveLastStop,
		})
	case serviceAreaScreen:
		if len(req.Cutoffs) == 0 {
			h.handleValidationError(w, "At least one cutoff is required")
			return
		}
		detail := req.PolygonDetail
		if detail == "" {
			detail = models.PolygonDetailHigh
		}
		err = s.SetOptions(models.ServiceAreaOptions{Cutoffs: req.Cutoffs, PolygonDetail: detail})
	default:
		h.handleValidationError(w, "Session has no options")
		return
	}
	if err != nil {
		h.handleSessionError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// HandleTap handles POST /api/v1/sessions/:id/taps
func (h *Handler) HandleTap(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req TapRequest
	if !h.decode(w, r, &req) {
		return
	}

	m, err := sess.Tap(models.Coordinates{Lat: *req.Lat, Lng: *req.Lng})
	if err != nil {
		h.handleSessionError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, TapResponse{
		Mutation: m,
		Features: mutationFeatures(m),
	})
}

// HandleSolve handles POST /api/v1/sessions/:id/solve. With wait=true the
// request blocks until the solve finishes; otherwise it returns 202 and the
// result is delivered through the event feed.
func (h *Handler) HandleSolve(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	out, err := sess.Solve()
	if err != nil {
		h.handleSessionError(w, err)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"status":     "pending",
			"session_id": sess.ID(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DefaultSolveWait)
	defer cancel()
	select {
	case outcome, ok := <-out:
		if !ok {
			h.handleSessionError(w, session.ErrClosed)
			return
		}
		h.writeOutcome(w, outcome)
	case <-ctx.Done():
		h.logger().Warn("[HTTP] Gave up waiting for solve", zap.String("session_id", sess.ID()))
		h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"status":     "pending",
			"session_id": sess.ID(),
		})
	}
}

// HandleReset handles POST /api/v1/sessions/:id/reset
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	if _, err := sess.Reset(); err != nil {
		h.handleSessionError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// HandleDirections handles GET /api/v1/sessions/:id/directions
func (h *Handler) HandleDirections(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	rs, ok := sess.(routeScreen)
	if !ok {
		h.handleNotFound(w, "Session has no directions")
		return
	}

	dirs, err := rs.Directions()
	if err != nil {
		h.handleSessionError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"directions": dirs,
	})
}

// HandleOverlays handles GET /api/v1/sessions/:id/overlays
func (h *Handler) HandleOverlays(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	snap, err := sess.Snapshot()
	if err != nil {
		h.handleSessionError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotFeatures(snap))
}

// HandleEvents handles GET /api/v1/sessions/:id/events?after=N
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var after int64
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			h.handleValidationError(w, "Invalid after parameter")
			return
		}
		after = n
	}

	events := []Event{}
	if h.Events != nil {
		events = h.Events.Since(sess.ID(), after)
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
	})
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, sess session.Session) {
	snap, err := sess.Snapshot()
	if err != nil {
		h.handleSessionError(w, err)
		return
	}
	resp := SessionResponse{
		Snapshot: snap,
		Overlays: snapshotFeatures(snap),
	}
	if h.Events != nil {
		resp.LastEvent = h.Events.Last(snap.ID)
		if rerr := h.Events.LastError(snap.ID); rerr != nil {
			resp.LastError = errorDetail(rerr)
		}
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeOutcome(w http.ResponseWriter, outcome session.Outcome) {
	resp := OutcomeResponse{Outcome: outcome}
	if outcome.Err != nil {
		resp.Error = errorDetail(outcome.Err)
		h.writeJSON(w, requestErrorStatus(request.CodeSolverExecutionFailed), resp)
		return
	}

	fc := geojson.NewFeatureCollection()
	if outcome.Route != nil {
		fc.Append(routeFeature(outcome.Route))
	}
	for _, g := range outcome.ServiceAreas {
		fc.Append(serviceAreaFeature(g))
	}
	resp.Features = fc
	h.writeJSON(w, http.StatusOK, resp)
}
