package testutil

import (
	"context"
	"sync"

	"github.com/paulmach/orb"

	"barrier-router/internal/models"
)

// MockGateway is a scripted solver gateway for testing. Each hook may be
// replaced; the defaults answer immediately with deterministic results.
type MockGateway struct {
	mu sync.Mutex

	LoadRouteParametersFunc       func(ctx context.Context) (*models.RouteParameters, error)
	SolveRouteFunc                func(ctx context.Context, req *models.RouteRequest) (*models.RouteResult, error)
	LoadServiceAreaParametersFunc func(ctx context.Context) (*models.ServiceAreaParameters, error)
	SolveServiceAreaFunc          func(ctx context.Context, req *models.ServiceAreaRequest) (*models.ServiceAreaResult, error)

	calls               map[string]int
	RouteRequests       []*models.RouteRequest
	ServiceAreaRequests []*models.ServiceAreaRequest
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		LoadRouteParametersFunc: func(ctx context.Context) (*models.RouteParameters, error) {
			return &models.RouteParameters{Profile: "driving"}, nil
		},
		SolveRouteFunc: func(ctx context.Context, req *models.RouteRequest) (*models.RouteResult, error) {
			return StraightRoute(req), nil
		},
		LoadServiceAreaParametersFunc: func(ctx context.Context) (*models.ServiceAreaParameters, error) {
			return &models.ServiceAreaParameters{
				Profile:        "driving",
				DefaultCutoffs: []float64{5},
				PolygonDetail:  models.PolygonDetailStandard,
			}, nil
		},
		SolveServiceAreaFunc: func(ctx context.Context, req *models.ServiceAreaRequest) (*models.ServiceAreaResult, error) {
			return SquareServiceAreas(req), nil
		},
		calls: make(map[string]int),
	}
}

func (g *MockGateway) count(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[name]++
}

// Calls returns how many times the named gateway method was invoked
func (g *MockGateway) Calls(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func (g *MockGateway) LoadDefaultRouteParameters(ctx context.Context) (*models.RouteParameters, error) {
	g.count("LoadDefaultRouteParameters")
	return g.LoadRouteParametersFunc(ctx)
}

func (g *MockGateway) SolveRoute(ctx context.Context, req *models.RouteRequest) (*models.RouteResult, error) {
	g.count("SolveRoute")
	g.mu.Lock()
	g.RouteRequests = append(g.RouteRequests, req)
	g.mu.Unlock()
	return g.SolveRouteFunc(ctx, req)
}

func (g *MockGateway) LoadDefaultServiceAreaParameters(ctx context.Context) (*models.ServiceAreaParameters, error) {
	g.count("LoadDefaultServiceAreaParameters")
	return g.LoadServiceAreaParametersFunc(ctx)
}

func (g *MockGateway) SolveServiceArea(ctx context.Context, req *models.ServiceAreaRequest) (*models.ServiceAreaResult, error) {
	g.count("SolveServiceArea")
	g.mu.Lock()
	g.ServiceAreaRequests = append(g.ServiceAreaRequests, req)
	g.mu.Unlock()
	return g.SolveServiceAreaFunc(ctx, req)
}

// LastRouteRequest returns the most recent route request, or nil
func (g *MockGateway) LastRouteRequest() *models.RouteRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.RouteRequests) == 0 {
		return nil
	}
	return g.RouteRequests[len(g.RouteRequests)-1]
}

// LastServiceAreaRequest returns the most recent service area request, or nil
func (g *MockGateway) LastServiceAreaRequest() *models.ServiceAreaRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ServiceAreaRequests) == 0 {
		return nil
	}
	return g.ServiceAreaRequests[len(g.ServiceAreaRequests)-1]
}

// Gate makes a hook wait until Release is called or the call's context ends
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func NewGate() *Gate {
	return &Gate{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

// Wait blocks the calling hook. It returns ctx.Err() if the context ends first.
func (g *Gate) Wait(ctx context.Context) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entered is signalled each time a hook starts waiting
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// StraightRoute joins the request stops with straight segments and one
// maneuver per stop
func StraightRoute(req *models.RouteRequest) *models.RouteResult {
	route := models.Route{
		Stops: append([]models.Stop{}, req.Stops...),
	}
	for i, s := range req.Stops {
		route.Geometry = append(route.Geometry, s.Position.Point())
		text := "Arrive at stop " + s.Label
		if i == 0 {
			text = "Depart from stop " + s.Label
		}
		route.Directions = append(route.Directions, models.DirectionManeuver{Text: text})
	}
	return &models.RouteResult{Routes: []models.Route{route}}
}

// SquareServiceAreas returns one square per cutoff per facility, sized by
// the cutoff in hundredths of a degree
func SquareServiceAreas(req *models.ServiceAreaRequest) *models.ServiceAreaResult {
	result := &models.ServiceAreaResult{Facilities: make([][]models.ServiceAreaPolygon, len(req.Facilities))}
	for i, f := range req.Facilities {
		for _, cutoff := range req.Cutoffs {
			d := cutoff / 100
			p := f.Position
			ring := orb.Ring{
				{p.Lng - d, p.Lat - d},
				{p.Lng + d, p.Lat - d},
				{p.Lng + d, p.Lat + d},
				{p.Lng - d, p.Lat + d},
				{p.Lng - d, p.Lat - d},
			}
			result.Facilities[i] = append(result.Facilities[i], models.ServiceAreaPolygon{
				Cutoff:   cutoff,
				Geometry: orb.Polygon{ring},
			})
		}
	}
	return result
}
