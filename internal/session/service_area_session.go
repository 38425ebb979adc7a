package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"barrier-router/internal/models"
	"barrier-router/internal/request"
	"barrier-router/internal/solver"
)

var serviceAreaModes = []Mode{ModeReady, ModeAddingFacilities, ModeAddingBarrierLines}

// ServiceAreaSession is the facility and barrier line service area screen
type ServiceAreaSession struct {
	core

	taps    ServiceAreaTapRouter
	store   FacilityStore
	options models.ServiceAreaOptions
	params  *models.ServiceAreaParameters
}

// NewServiceAreaSession creates a session in NotReady with the configured
// default cutoffs followed by the added ones
func NewServiceAreaSession(id string, cfg Config, deps Deps) *ServiceAreaSession {
	s := &ServiceAreaSession{
		options: models.ServiceAreaOptions{
			Cutoffs:       append([]float64{}, cfg.DefaultCutoffs...),
			PolygonDetail: cfg.PolygonDetail,
		}.WithCutoffs(cfg.AddedCutoffs...),
	}
	s.init(id, models.SolveKindServiceArea, cfg, deps)
	return s
}

func (s *ServiceAreaSession) Start() error {
	return s.loop.do(func() {
		s.changeMode(ModeReady)
		s.loadParameters()
	})
}

// SetMode switches the entry mode. Any switch commits the barrier line in
// progress and starts a new one.
func (s *ServiceAreaSession) SetMode(m Mode) (Affordances, error) {
	var aff Affordances
	var rerr error
	err := s.loop.do(func() {
		if rerr = s.selectMode(m, serviceAreaModes...); rerr != nil {
			return
		}
		s.commitLine()
		aff = s.changeMode(m)
	})
	if err != nil {
		return Affordances{}, err
	}
	return aff, rerr
}

// SetOptions replaces the cutoffs and polygon detail used by the next solve
func (s *ServiceAreaSession) SetOptions(opts models.ServiceAreaOptions) error {
	return s.loop.do(func() {
		s.options = models.ServiceAreaOptions{PolygonDetail: opts.PolygonDetail}.WithCutoffs(opts.Cutoffs...)
	})
}

func (s *ServiceAreaSession) Tap(c models.Coordinates) (Mutation, error) {
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

// Solve commits the barrier line in progress, validates the facilities and
// submits them. The returned channel yields exactly one Outcome.
func (s *ServiceAreaSession) Solve() (<-chan Outcome, error) {
	var out <-chan Outcome
	var rerr error
	err := s.loop.do(func() { out, rerr = s.submit() })
	if err != nil {
		return nil, err
	}
	return out, rerr
}

func (s *ServiceAreaSession) submit() (<-chan Outcome, error) {
	if !s.modes.Affordances().Route {
		return nil, s.notAllowed("solve service areas")
	}

	s.commitLine()
	rec := models.SolveRecord{Facilities: s.store.FacilityCount(), Barriers: len(s.store.CommittedLines())}
	req, err := request.BuildServiceArea(s.params, &s.store, s.options)
	if err != nil {
		if errors.Is(err, request.ErrSolverNotReady) {
			s.loadParameters()
		}
		s.reject(err, rec)
		return nil, err
	}

	if len(s.store.Graphics()) > 0 {
		s.store.SetGraphics(nil)
		s.publish(Mutation{Kind: MutationServiceAreasCleared})
	}
	s.changeMode(ModeRouting)
	s.logger.Info("[SESSION] Solving service areas",
		zap.Int("facilities", rec.Facilities),
		zap.Int("barriers", rec.Barriers),
		zap.Float64s("cutoffs", req.Cutoffs))

	started := time.Now()
	out := make(chan Outcome, 1)
	s.spawn(func(ctx context.Context) {
		var result *models.ServiceAreaResult
		err := s.call(ctx, func(ctx context.Context) error {
			var err error
			result, err = s.deps.Gateway.SolveServiceArea(ctx, req)
			return err
		})
		s.settle(out, func() { s.complete(result, err, len(req.Facilities), rec, started, out) })
	})
	return out, nil
}

func (s *ServiceAreaSession) complete(result *models.ServiceAreaResult, err error, facilities int, rec models.SolveRecord, started time.Time, out chan<- Outcome) {
	if err == nil && result == nil {
		err = errors.New("no service areas returned")
	}

	var outcome Outcome
	switch {
	case errors.Is(err, solver.ErrOutOfCoverage):
		outcome.Err = request.ExecutionFailed("Service area error", "Facility not within the service area!", err)
		s.fail(outcome.Err, err, "solve_service_area")
	case err != nil:
		outcome.Err = request.ExecutionFailed("Service area error", "Error getting the service area result:", err)
		s.fail(outcome.Err, err, "solve_service_area")
	default:
		s.store.SetGraphics(request.Graphics(result, facilities))
		outcome.Succeeded = true
		outcome.ServiceAreas = s.store.Graphics()
		s.publish(Mutation{Kind: MutationServiceAreasDisplayed, ServiceAreas: outcome.ServiceAreas})
	}
	s.finishSolve(outcome, rec, started, out)
}

// Reset clears facilities, barrier lines and polygons and deselects the
// entry mode
func (s *ServiceAreaSession) Reset() (Affordances, error) {
	var aff Affordances
	var rerr error
	err := s.loop.do(func() {
		if !s.modes.Affordances().Reset {
			rerr = s.notAllowed("reset")
			return
		}
		s.store.Reset()
		s.publish(Mutation{Kind: MutationCleared})
		aff = s.changeMode(ModeReady)
		s.logger.Info("[SESSION] Service area screen reset")
	})
	if err != nil {
		return Affordances{}, err
	}
	return aff, rerr
}

func (s *ServiceAreaSession) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := s.loop.do(func() {
		opts := models.ServiceAreaOptions{PolygonDetail: s.options.PolygonDetail}.WithCutoffs(s.options.Cutoffs...)
		current := s.store.CurrentLine()
		snap = Snapshot{
			ID:                 s.id,
			Kind:               s.kind,
			Mode:               s.modes.Mode(),
			Affordances:        s.modes.Affordances(),
			ParametersLoaded:   s.params != nil,
			ServiceAreaOptions: &opts,
			Facilities:         s.store.Facilities(),
			BarrierLines:       s.store.CommittedLines(),
			CurrentLine:        &current,
			ServiceAreas:       s.store.Graphics(),
		}
	})
	return snap, err
}

func (s *ServiceAreaSession) commitLine() {
	pending := len(s.store.CurrentLine().Vertices)
	if s.store.CommitLine() {
		s.logger.Debug("[SESSION] Committed barrier line", zap.Int("vertices", pending))
	}
}

func (s *ServiceAreaSession) loadParameters() {
	if s.loading {
		return
	}
	s.loading = true
	s.spawn(func(ctx context.Context) {
		var params *models.ServiceAreaParameters
		err := s.call(ctx, func(ctx context.Context) error {
			var err error
			params, err = s.deps.Gateway.LoadDefaultServiceAreaParameters(ctx)
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
