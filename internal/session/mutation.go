package session

import (
	"barrier-router/internal/models"
	"barrier-router/internal/request"
)

// MutationKind names the change a session published
type MutationKind string

const (
	MutationNone                  MutationKind = "none"
	MutationStopAdded             MutationKind = "stop_added"
	MutationBarrierAdded          MutationKind = "barrier_added"
	MutationCircleAdded           MutationKind = "circle_added"
	MutationFacilityAdded         MutationKind = "facility_added"
	MutationBarrierVertexAdded    MutationKind = "barrier_vertex_added"
	MutationCleared               MutationKind = "cleared"
	MutationRouteDisplayed        MutationKind = "route_displayed"
	MutationServiceAreasDisplayed MutationKind = "service_areas_displayed"
	MutationServiceAreasCleared   MutationKind = "service_areas_cleared"
	MutationError                 MutationKind = "error"
	MutationModeChanged           MutationKind = "mode_changed"
)

// Viewport is a request to recenter the display
type Viewport struct {
	Center models.Coordinates `json:"center"`
	Scale  float64            `json:"scale"`
}

// Mutation describes one change for the presentation layer. Only the fields
// relevant to Kind are set.
type Mutation struct {
	Kind      MutationKind `json:"kind"`
	SessionID string       `json:"session_id,omitempty"`

	Stop        *models.Stop          `json:"stop,omitempty"`
	Barrier     *models.BarrierRegion `json:"barrier,omitempty"`
	Circle      *models.CircleBuffer  `json:"circle,omitempty"`
	Marker      *models.Coordinates   `json:"marker,omitempty"`
	Facility    *models.Facility      `json:"facility,omitempty"`
	BarrierLine *models.BarrierLine   `json:"barrier_line,omitempty"`
	Recenter    *Viewport             `json:"recenter,omitempty"`

	Route        *models.Route               `json:"route,omitempty"`
	ServiceAreas []models.ServiceAreaGraphic `json:"service_areas,omitempty"`

	Error *request.RequestError `json:"-"`

	Mode        Mode        `json:"mode"`
	Affordances Affordances `json:"affordances"`
}

// IsNone reports whether the mutation changed nothing
func (m Mutation) IsNone() bool {
	return m.Kind == MutationNone
}

// Presenter consumes session mutations. Present is called from the session's
// interaction loop and must not call back into the session.
type Presenter interface {
	Present(m Mutation)
}

// PresenterFunc adapts a function to the Presenter interface
type PresenterFunc func(m Mutation)

func (f PresenterFunc) Present(m Mutation) { f(m) }

type nopPresenter struct{}

func (nopPresenter) Present(Mutation) {}
