package request

import (
	"barrier-router/internal/models"
)

// ServiceAreaSource is the read-only view of accumulated service area input
type ServiceAreaSource interface {
	Facilities() []models.Facility
	CommittedLines() []models.BarrierLine
}

// BuildServiceArea validates preconditions and assembles a service area
// request. Only committed barrier lines are included. Empty option cutoffs
// fall back to the solver defaults.
func BuildServiceArea(params *models.ServiceAreaParameters, src ServiceAreaSource, opts models.ServiceAreaOptions) (*models.ServiceAreaRequest, error) {
	if params == nil {
		return nil, ErrSolverNotReady
	}

	facilities := src.Facilities()
	if len(facilities) == 0 {
		return nil, ErrInsufficientFacilities
	}

	cutoffs := opts.Cutoffs
	if len(cutoffs) == 0 {
		cutoffs = params.DefaultCutoffs
	}
	detail := opts.PolygonDetail
	if detail == "" {
		detail = params.PolygonDetail
	}

	lines := src.CommittedLines()
	barriers := make([]models.BarrierLine, len(lines))
	for i, l := range lines {
		barriers[i] = models.BarrierLine{Vertices: append([]models.Coordinates{}, l.Vertices...)}
	}

	return &models.ServiceAreaRequest{
		Profile:        params.Profile,
		Facilities:     append([]models.Facility{}, facilities...),
		Barriers:       barriers,
		Cutoffs:        append([]float64{}, cutoffs...),
		PolygonDetail:  detail,
		ReturnPolygons: true,
	}, nil
}

// FillStyle returns the alternating style index for the j-th polygon of a facility
func FillStyle(j int) int {
	return j % 2
}

// Graphics flattens a service area result into display graphics for the
// first facilities entries, tagging each polygon with its fill style.
func Graphics(result *models.ServiceAreaResult, facilities int) []models.ServiceAreaGraphic {
	var out []models.ServiceAreaGraphic
	for i := 0; i < facilities; i++ {
		for j, p := range result.ResultPolygons(i) {
			out = append(out, models.ServiceAreaGraphic{
				FacilityIndex: i,
				PolygonIndex:  j,
				StyleIndex:    FillStyle(j),
				Cutoff:        p.Cutoff,
				Geometry:      p.Geometry,
			})
		}
	}
	return out
}
