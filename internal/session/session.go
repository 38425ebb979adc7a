package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"barrier-router/internal/geometry"
	"barrier-router/internal/metrics"
	"barrier-router/internal/models"
	"barrier-router/internal/request"
	"barrier-router/internal/solver"
)

// Variant selects the barrier radius of a route screen
type Variant string

const (
	VariantStandard Variant = "standard"
	VariantExtended Variant = "extended"
)

// Config holds the constants sessions depend on
type Config struct {
	BarrierRadius         float64
	ExtendedBarrierRadius float64
	CircleRadius          float64
	CircleViewportScale   float64
	DefaultCutoffs        []float64
	AddedCutoffs          []float64
	PolygonDetail         models.PolygonDetail
	SolveTimeout          time.Duration
}

// DefaultConfig mirrors the configuration defaults
func DefaultConfig() Config {
	return Config{
		BarrierRadius:         100,
		ExtendedBarrierRadius: 500,
		CircleRadius:          10,
		CircleViewportScale:   2000,
		DefaultCutoffs:        []float64{5},
		AddedCutoffs:          []float64{2},
		PolygonDetail:         models.PolygonDetailHigh,
		SolveTimeout:          60 * time.Second,
	}
}

func (c Config) barrierRadius(v Variant) float64 {
	if v == VariantExtended {
		return c.ExtendedBarrierRadius
	}
	return c.BarrierRadius
}

// Recorder persists solve attempts
type Recorder interface {
	Record(ctx context.Context, rec models.SolveRecord) (*models.SolveRecord, error)
}

// Reporter forwards solver failures to error tracking
type Reporter interface {
	ReportSolveFailure(err error, sessionID, operation string)
}

// Deps are the collaborators shared by every session
type Deps struct {
	Gateway   solver.Gateway
	Geometry  geometry.Engine
	Presenter Presenter
	Recorder  Recorder
	Metrics   *metrics.Metrics
	Reporter  Reporter
	Logger    *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Geometry == nil {
		d.Geometry = geometry.NewEngine()
	}
	if d.Presenter == nil {
		d.Presenter = nopPresenter{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// Outcome is the single completion event of a submitted solve
type Outcome struct {
	Kind         models.SolveKind            `json:"kind"`
	Succeeded    bool                        `json:"succeeded"`
	Err          *request.RequestError       `json:"-"`
	Route        *models.Route               `json:"route,omitempty"`
	ServiceAreas []models.ServiceAreaGraphic `json:"service_areas,omitempty"`
	Mode         Mode                        `json:"mode"`
	Affordances  Affordances                 `json:"affordances"`
}

// Snapshot is a point-in-time copy of a session's state
type Snapshot struct {
	ID               string           `json:"id"`
	Kind             models.SolveKind `json:"kind"`
	Variant          Variant          `json:"variant,omitempty"`
	Mode             Mode             `json:"mode"`
	Affordances      Affordances      `json:"affordances"`
	ParametersLoaded bool             `json:"parameters_loaded"`

	RouteOptions *models.RouteOptions       `json:"route_options,omitempty"`
	Stops        []models.Stop              `json:"stops,omitempty"`
	Barriers     []models.BarrierRegion     `json:"barriers,omitempty"`
	Circles      []models.CircleBuffer      `json:"circles,omitempty"`
	Markers      []models.Coordinates       `json:"markers,omitempty"`
	Route        *models.Route              `json:"route,omitempty"`
	Directions   []models.DirectionManeuver `json:"directions,omitempty"`

	ServiceAreaOptions *models.ServiceAreaOptions  `json:"service_area_options,omitempty"`
	Facilities         []models.Facility           `json:"facilities,omitempty"`
	BarrierLines       []models.BarrierLine        `json:"barrier_lines,omitempty"`
	CurrentLine        *models.BarrierLine         `json:"current_line,omitempty"`
	ServiceAreas       []models.ServiceAreaGraphic `json:"service_areas,omitempty"`
}

// Session is one interactive screen
type Session interface {
	ID() string
	Kind() models.SolveKind
	Start() error
	Mode() (Mode, error)
	SetMode(m Mode) (Affordances, error)
	Tap(c models.Coordinates) (Mutation, error)
	Solve() (<-chan Outcome, error)
	Reset() (Affordances, error)
	Snapshot() (Snapshot, error)
	Close()
}

// core is the state and plumbing shared by both screens. Every field below
// loop is only touched from the loop goroutine.
type core struct {
	id     string
	kind   models.SolveKind
	cfg    Config
	deps   Deps
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	loop    *loop
	modes   ModeController
	loading bool
}

func (c *core) init(id string, kind models.SolveKind, cfg Config, deps Deps) {
	deps = deps.withDefaults()
	if cfg.SolveTimeout <= 0 {
		cfg.SolveTimeout = DefaultConfig().SolveTimeout
	}
	c.id = id
	c.kind = kind
	c.cfg = cfg
	c.deps = deps
	c.logger = deps.Logger.With(zap.String("session_id", id), zap.String("kind", string(kind)))
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.loop = newLoop()
}

func (c *core) ID() string             { return c.id }
func (c *core) Kind() models.SolveKind { return c.kind }

func (c *core) Mode() (Mode, error) {
	var m Mode
	err := c.loop.do(func() { m = c.modes.Mode() })
	return m, err
}

// Close cancels in-flight solver calls and stops the loop. Pending solve
// channels are closed without an outcome.
func (c *core) Close() {
	c.cancel()
	c.loop.close()
	c.wg.Wait()
}

func (c *core) publish(m Mutation) {
	m.SessionID = c.id
	m.Mode = c.modes.Mode()
	m.Affordances = c.modes.Affordances()
	c.deps.Presenter.Present(m)
}

func (c *core) changeMode(m Mode) Affordances {
	from := c.modes.Mode()
	aff := c.modes.SetMode(m)
	if from != m {
		c.logger.Debug("[SESSION] Mode changed", zap.Stringer("from", from), zap.Stringer("mode", m))
	}
	c.publish(Mutation{Kind: MutationModeChanged})
	return aff
}

func (c *core) notAllowed(action string) *request.RequestError {
	return request.ActionNotAllowed(action, strings.ReplaceAll(c.modes.Mode().String(), "_", " "))
}

// selectMode validates a user-requested mode switch
func (c *core) selectMode(target Mode, selectable ...Mode) error {
	for _, m := range selectable {
		if m == target {
			if !c.modes.Affordances().allows(target) {
				return c.notAllowed("switch to " + strings.ReplaceAll(target.String(), "_", " "))
			}
			return nil
		}
	}
	return c.notAllowed("switch to " + strings.ReplaceAll(target.String(), "_", " "))
}

func (c *core) observeTap(m Mutation) {
	c.deps.Metrics.ObserveTap(string(c.kind), c.modes.Mode().String(), string(m.Kind))
}

// spawn runs fn off the loop, tied to the session's lifetime
func (c *core) spawn(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
}

// settle posts a solve completion to the loop. Once the session is closing
// the completion is dropped and out is closed without a value.
func (c *core) settle(out chan<- Outcome, complete func()) {
	posted := c.loop.post(func() {
		if c.ctx.Err() != nil {
			close(out)
			return
		}
		complete()
	})
	if !posted {
		close(out)
	}
}

// call runs a blocking solver call under the solve timeout
func (c *core) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SolveTimeout)
	defer cancel()
	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("solver did not respond within %s", c.cfg.SolveTimeout)
	}
	return err
}

// reject records a solve attempt that failed validation
func (c *core) reject(err error, rec models.SolveRecord) {
	var rerr *request.RequestError
	if !errors.As(err, &rerr) {
		rerr = request.ExecutionFailed("Error", err.Error(), nil)
	}
	c.logger.Info("[SESSION] Solve rejected", zap.String("code", string(rerr.Code)))
	c.publish(Mutation{Kind: MutationError, Error: rerr})

	rec.Outcome = models.SolveOutcomeRejected
	rec.Code = string(rerr.Code)
	rec.Message = rerr.Message
	rec.StartedAt = time.Now()
	c.record(rec)
}

// finishSolve is the completion handler of every submitted solve. It returns
// the screen to Ready whatever the result, then records and delivers outcome.
func (c *core) finishSolve(outcome Outcome, rec models.SolveRecord, started time.Time, out chan<- Outcome) {
	defer close(out)

	outcome.Kind = c.kind
	outcome.Affordances = c.changeMode(ModeReady)
	outcome.Mode = c.modes.Mode()

	rec.Duration = time.Since(started)
	rec.StartedAt = started
	if outcome.Succeeded {
		rec.Outcome = models.SolveOutcomeSucceeded
		c.logger.Info("[SESSION] Solve succeeded", zap.Duration("duration", rec.Duration))
	} else {
		rec.Outcome = models.SolveOutcomeFailed
		if outcome.Err != nil {
			rec.Code = string(outcome.Err.Code)
			rec.Message = outcome.Err.Message
		}
		c.logger.Warn("[SESSION] Solve failed", zap.String("error", rec.Message), zap.Duration("duration", rec.Duration))
	}
	c.record(rec)

	out <- outcome
}

// fail publishes a solver failure and forwards it to error tracking
func (c *core) fail(rerr *request.RequestError, cause error, operation string) {
	c.publish(Mutation{Kind: MutationError, Error: rerr})
	if c.deps.Reporter != nil {
		c.deps.Reporter.ReportSolveFailure(cause, c.id, operation)
	}
}

func (c *core) record(rec models.SolveRecord) {
	rec.SessionID = c.id
	rec.Kind = c.kind
	c.deps.Metrics.ObserveSolve(string(rec.Kind), string(rec.Outcome), rec.Duration)

	if c.deps.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.deps.Recorder.Record(ctx, rec); err != nil {
		c.logger.Warn("[SESSION] Failed to record solve", zap.Error(err))
	}
}

// parametersLoaded handles the end of an asynchronous parameter load
func (c *core) parametersLoaded(err error) {
	c.loading = false
	c.deps.Metrics.ObserveParameterLoad(string(c.kind), err)
	if err != nil {
		c.logger.Warn("[SESSION] Failed to load solver parameters", zap.Error(err))
		c.fail(request.ExecutionFailed(request.ErrSolverNotReady.Title, "Couldn't load solver parameters.", err), err, "load_parameters")
		return
	}
	c.logger.Info("[SESSION] Solver parameters loaded")
}
