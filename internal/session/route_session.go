package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"barrier-router/internal/models"
	"barrier-router/internal/request"
)

var routeModes = []Mode{ModeReady, ModeAddingStops, ModeAddingBarriers, ModeAddingCircle}

// RouteSession is the stop and barrier routing screen
type RouteSession struct {
	core

	variant Variant
	taps    *RouteTapRouter
	store   StopBarrierStore
	options models.RouteOptions
	params  *models.RouteParameters
}

// NewRouteSession creates a session in NotReady. Call Start to make it usable.
func NewRouteSession(id string, variant Variant, cfg Config, deps Deps) *RouteSession {
	if variant != VariantExtended {
		variant = VariantStandard
	}
	s := &RouteSession{variant: variant}
	s.init(id, models.SolveKindRoute, cfg, deps)
	s.taps = NewRouteTapRouter(s.deps.Geometry, TapConfig{
		BarrierRadiusMeters: cfg.barrierRadius(variant),
		CircleRadius:        cfg.CircleRadius,
		ViewportScale:       cfg.CircleViewportScale,
	})
	return s
}

func (s *RouteSession) Variant() Variant { return s.variant }

// Start enables the screen and begins loading the default route parameters
func (s *RouteSession) Start() error {
	return s.loop.do(func() {
		s.enter(ModeReady)
		s.loadParameters()
	})
}

func (s *RouteSession) SetMode(m Mode) (Affordances, error) {
	var aff Affordances
	var rerr error
	err := s.loop.do(func() {
		if rerr = s.selectMode(m, routeModes...); rerr != nil {
			return
		}
		aff = s.enter(m)
	})
	if err != nil {
		return Affordances{}, err
	}
	return aff, rerr
}

// SetOptions replaces the stop sequencing toggles used by the next solve
func (s *RouteSession) SetOptions(opts models.RouteOptions) error {
	return s.loop.do(func() { s.options = opts })
}

// Tap applies a map tap under the current mode
func (s *RouteSession) Tap(c models.Coordinates) (Mutation, error) {
	var m Mutation
	err := s.loop.do(func() {
		c = s.deps.Geometry.Normalize(c)
		m = s.taps.HandleTap(s.modes.Mode(), c, &s.store)
		s.observeTap(m)
		if !m.IsNone() {
			s.publish(m)
		}
		m.SessionID = s.id
		m.Mode = s.modes.Mode()
		m.Affordances = s.modes.Affordances()
	})
	return m, err
}

// Solve validates the accumulated stops and submits them to the solver.
// Validation failures are returned directly. Otherwise the returned channel
// yields exactly one Outcome once the screen is back in Ready.
func (s *RouteSession) Solve() (<-chan Outcome, error) {
	var out <-chan Outcome
	var rerr error
	err := s.loop.do(func() { out, rerr = s.submit() })
	if err != nil {
		return nil, err
	}
	return out, rerr
}

func (s *RouteSession) submit() (<-chan Outcome, error) {
	if !s.modes.Affordances().Route {
		return nil, s.notAllowed("solve a route")
	}

	rec := models.SolveRecord{Stops: s.store.StopCount(), Barriers: s.store.BarrierCount()}
	req, err := request.BuildRoute(s.params, &s.store, s.options)
	if err != nil {
		if errors.Is(err, request.ErrSolverNotReady) {
			s.loadParameters()
		}
		s.reject(err, rec)
		return nil, err
	}

	s.changeMode(ModeRouting)
	s.logger.Info("[SESSION] Solving route",
		zap.Int("stops", rec.Stops),
		zap.Int("barriers", rec.Barriers),
		zap.Bool("find_best_sequence", req.Options.FindBestSequence))

	started := time.Now()
	out := make(chan Outcome, 1)
	s.spawn(func(ctx context.Context) {
		var result *models.RouteResult
		err := s.call(ctx, func(ctx context.Context) error {
			var err error
			result, err = s.deps.Gateway.SolveRoute(ctx, req)
			return err
		})
		s.settle(out, func() { s.complete(result, err, rec, started, out) })
	})
	return out, nil
}

func (s *RouteSession) complete(result *models.RouteResult, err error, rec models.SolveRecord, started time.Time, out chan<- Outcome) {
	if err == nil && (result == nil || len(result.Routes) == 0) {
		err = errors.New("no routes returned")
	}

	var outcome Outcome
	if err != nil {
		outcome.Err = request.ExecutionFailed("Routing error", "Couldn't calculate route.", err)
		s.fail(outcome.Err, err, "solve_route")
	} else {
		s.store.SetRoute(result.Routes[0])
		outcome.Succeeded = true
		outcome.Route = s.store.Route()
		s.publish(Mutation{Kind: MutationRouteDisplayed, Route: outcome.Route})
	}
	s.finishSolve(outcome, rec, started, out)
}

// Reset clears every stop, barrier, circle and route artifact, then
// restarts the screen through NotReady
func (s *RouteSession) Reset() (Affordances, error) {
	var aff Affordances
	var rerr error
	err := s.loop.do(func() {
		if !s.modes.Affordances().Reset {
			rerr = s.notAllowed("reset")
			return
		}
		s.store.Reset()
		s.publish(Mutation{Kind: MutationCleared})
		s.enter(ModeNotReady)
		aff = s.enter(ModeReady)
		s.logger.Info("[SESSION] Route screen reset")
	})
	if err != nil {
		return Affordances{}, err
	}
	return aff, rerr
}

// Directions returns the maneuvers of the displayed route
func (s *RouteSession) Directions() ([]models.DirectionManeuver, error) {
	var dirs []models.DirectionManeuver
	var rerr error
	err := s.loop.do(func() {
		if !s.modes.Affordances().Directions {
			rerr = s.notAllowed("show directions")
			return
		}
		dirs = s.store.Directions()
		if len(dirs) == 0 {
			rerr = request.ErrNoDirections
		}
	})
	if err != nil {
		return nil, err
	}
	return dirs, rerr
}

func (s *RouteSession) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := s.loop.do(func() {
		opts := s.options
		snap = Snapshot{
			ID:               s.id,
			Kind:             s.kind,
			Variant:          s.variant,
			Mode:             s.modes.Mode(),
			Affordances:      s.modes.Affordances(),
			ParametersLoaded: s.params != nil,
			RouteOptions:     &opts,
			Stops:            s.store.Stops(),
			Barriers:         s.store.Barriers(),
			Circles:          s.store.Circles(),
			Markers:          s.store.Markers(),
			Route:            s.store.Route(),
			Directions:       s.store.Directions(),
		}
	})
	return snap, err
}

// enter switches mode. Entering NotReady clears the sequencing toggles.
func (s *RouteSession) enter(m Mode) Affordances {
	if m == ModeNotReady {
		s.options = models.RouteOptions{}
	}
	return s.changeMode(m)
}

func (s *RouteSession) loadParameters() {
	if s.loading {
		return
	}
	s.loading = true
	s.spawn(func(ctx context.Context) {
		var params *models.RouteParameters
		err := s.call(ctx, func(ctx context.Context) error {
			var err error
			params, err = s.deps.Gateway.LoadDefaultRouteParameters(ctx)
			return err
		})
		s.loop.post(func() {
			if s.ctx.Err() != nil {
				return
			}
			if err == nil {
				s.params = params
			}
			s.parametersLoaded(err)
		})
	})
}
