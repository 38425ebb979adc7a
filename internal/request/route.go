package request

import (
	"strconv"

	"barrier-router/internal/models"
)

// RouteSource is the read-only view of accumulated route input
type RouteSource interface {
	Stops() []models.Stop
	Barriers() []models.BarrierRegion
}

// BuildRoute validates preconditions and assembles a route request from the
// current contents of src. It never mutates src.
func BuildRoute(params *models.RouteParameters, src RouteSource, opts models.RouteOptions) (*models.RouteRequest, error) {
	if params == nil {
		return nil, ErrSolverNotReady
	}

	stops := src.Stops()
	if len(stops) < 2 {
		return nil, ErrInsufficientStops
	}

	req := &models.RouteRequest{
		Profile:          params.Profile,
		Stops:            make([]models.Stop, len(stops)),
		Barriers:         append([]models.BarrierRegion{}, src.Barriers()...),
		ReturnStops:      true,
		ReturnDirections: true,
		Options:          opts,
	}
	for i, s := range stops {
		req.Stops[i] = models.Stop{Position: s.Position, Label: strconv.Itoa(i + 1)}
	}

	return req, nil
}
