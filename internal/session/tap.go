package session

import (
	"barrier-router/internal/geometry"
	"barrier-router/internal/models"
)

// TapConfig holds the fixed buffer sizes used when a tap becomes geometry
type TapConfig struct {
	BarrierRadiusMeters float64
	CircleRadius        float64
	ViewportScale       float64
}

// RouteTapRouter decides what a tap on the route screen means
type RouteTapRouter struct {
	geo geometry.Engine
	cfg TapConfig
}

func NewRouteTapRouter(geo geometry.Engine, cfg TapConfig) *RouteTapRouter {
	return &RouteTapRouter{geo: geo, cfg: cfg}
}

// HandleTap applies a normalized tap at c to store according to mode.
// Modes that do not accept taps leave the store untouched.
func (r *RouteTapRouter) HandleTap(mode Mode, c models.Coordinates, store *StopBarrierStore) Mutation {
	switch mode {
	case ModeAddingStops:
		stop := store.AddStop(c)
		return Mutation{Kind: MutationStopAdded, Stop: &stop}

	case ModeAddingBarriers:
		barrier := models.BarrierRegion{
			Center:       c,
			RadiusMeters: r.cfg.BarrierRadiusMeters,
			Polygon:      r.geo.BufferGeodetic(c, r.cfg.BarrierRadiusMeters, geometry.Meters),
		}
		store.AddBarrier(barrier)
		return Mutation{Kind: MutationBarrierAdded, Barrier: &barrier}

	case ModeAddingCircle:
		circle := models.CircleBuffer{
			Center:  c,
			Radius:  r.cfg.CircleRadius,
			Polygon: r.geo.BufferPlanar(c, r.cfg.CircleRadius),
		}
		store.AddCircle(circle)
		marker := c
		return Mutation{
			Kind:     MutationCircleAdded,
			Circle:   &circle,
			Marker:   &marker,
			Recenter: &Viewport{Center: c, Scale: r.cfg.ViewportScale},
		}

	case ModeNotReady, ModeReady, ModeRouting, ModeAddingFacilities, ModeAddingBarrierLines:
		return Mutation{Kind: MutationNone}
	}
	return Mutation{Kind: MutationNone}
}

// ServiceAreaTapRouter decides what a tap on the service area screen means
type ServiceAreaTapRouter struct{}

// HandleTap adds a facility or extends the in-progress barrier line
func (ServiceAreaTapRouter) HandleTap(mode Mode, c models.Coordinates, store *FacilityStore) Mutation {
	switch mode {
	case ModeAddingFacilities:
		f := store.AddFacility(c)
		return Mutation{Kind: MutationFacilityAdded, Facility: &f}

	case ModeAddingBarrierLines:
		line := store.AddVertex(c)
		return Mutation{Kind: MutationBarrierVertexAdded, BarrierLine: &line}

	case ModeNotReady, ModeReady, ModeRouting, ModeAddingStops, ModeAddingBarriers, ModeAddingCircle:
		return Mutation{Kind: MutationNone}
	}
	return Mutation{Kind: MutationNone}
}
