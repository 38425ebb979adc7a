package request

import (
	"errors"
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barrier-router/internal/models"
)

type fakeSource struct {
	stops      []models.Stop
	barriers   []models.BarrierRegion
	facilities []models.Facility
	lines      []models.BarrierLine
}

func (f *fakeSource) Stops() []models.Stop { return f.stops }
func (f *fakeSource) Barriers() []models.BarrierRegion { return f.barriers }
func (f *fakeSource) Facilities() []models.Facility { return f.facilities }
func (f *fakeSource) CommittedLines() []models.BarrierLine { return f.lines }

var (
	pointA = models.Coordinates{Lat: 32.71, Lng: -117.16}
	pointB = models.Coordinates{Lat: 32.72, Lng: -117.15}
	pointC = models.Coordinates{Lat: 32.73, Lng: -117.14}
)

func routeParams() *models.RouteParameters {
	return &models.RouteParameters{Profile: "driving"}
}

func TestBuildRouteValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		params *models.RouteParameters
		stops  int
		want   Code
	}{
		{"no params and no stops", nil, 0, CodeSolverNotReady},
		{"no params with stops", nil, 3, CodeSolverNotReady},
		{"zero stops", routeParams(), 0, CodeInsufficientStops},
		{"one stop", routeParams(), 1, CodeInsufficientStops},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{}
			for i := 0; i < tt.stops; i++ {
				src.stops = append(src.stops, models.Stop{Position: pointA})
			}

			req, err := BuildRoute(tt.params, src, models.RouteOptions{})
			assert.Nil(t, req)
			require.Error(t, err)
			assert.Equal(t, tt.want, CodeOf(err))
		})
	}
}

func TestBuildRouteRelabelsStops(t *testing.T) {
	src := &fakeSource{
		stops: []models.Stop{
			{Position: pointA, Label: "stale"},
			{Position: pointB},
			{Position: pointC, Label: "9"},
		},
		barriers: []models.BarrierRegion{{Center: pointB, RadiusMeters: 100}},
	}
	opts := models.RouteOptions{FindBestSequence: true, PreserveLastStop: true}

	req, err := BuildRoute(routeParams(), src, opts)
	require.NoError(t, err)

	require.Len(t, req.Stops, 3)
	for i, want := range []models.Coordinates{pointA, pointB, pointC} {
		assert.Equal(t, want, req.Stops[i].Position)
		assert.Equal(t, fmt.Sprint(i+1), req.Stops[i].Label)
	}
	assert.Equal(t, src.barriers, req.Barriers)
	assert.True(t, req.ReturnStops)
	assert.True(t, req.ReturnDirections)
	assert.Equal(t, opts, req.Options)
	assert.Equal(t, "driving", req.Profile)

	// source untouched
	assert.Equal(t, "stale", src.stops[0].Label)
	assert.Equal(t, "9", src.stops[2].Label)
}

func TestBuildRouteIdempotent(t *testing.T) {
	src := &fakeSource{stops: []models.Stop{{Position: pointA}, {Position: pointB}}}

	first, err := BuildRoute(routeParams(), src, models.RouteOptions{})
	require.NoError(t, err)
	second, err := BuildRoute(routeParams(), src, models.RouteOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)

	src.stops = append(src.stops, models.Stop{Position: pointC})
	third, err := BuildRoute(routeParams(), src, models.RouteOptions{})
	require.NoError(t, err)
	assert.Len(t, third.Stops, 3)
	assert.Equal(t, "3", third.Stops[2].Label)
	assert.Len(t, first.Stops, 2, "earlier request is not aliased to the store")
}

func serviceAreaParams() *models.ServiceAreaParameters {
	return &models.ServiceAreaParameters{
		Profile:        "driving",
		DefaultCutoffs: []float64{5},
		PolygonDetail:  models.PolygonDetailStandard,
	}
}

func TestBuildServiceAreaValidation(t *testing.T) {
	_, err := BuildServiceArea(nil, &fakeSource{facilities: []models.Facility{{Position: pointA}}}, models.ServiceAreaOptions{})
	assert.True(t, errors.Is(err, ErrSolverNotReady))

	_, err = BuildServiceArea(serviceAreaParams(), &fakeSource{}, models.ServiceAreaOptions{})
	assert.True(t, errors.Is(err, ErrInsufficientFacilities))
}

func TestBuildServiceArea(t *testing.T) {
	src := &fakeSource{
		facilities: []models.Facility{{Position: pointA}, {Position: pointC}},
		lines: []models.BarrierLine{
			{Vertices: []models.Coordinates{pointA, pointB}},
		},
	}
	opts := models.ServiceAreaOptions{PolygonDetail: models.PolygonDetailHigh}.WithCutoffs(5, 2)

	req, err := BuildServiceArea(serviceAreaParams(), src, opts)
	require.NoError(t, err)

	assert.Equal(t, src.facilities, req.Facilities)
	assert.Equal(t, src.lines, req.Barriers)
	assert.Equal(t, []float64{5, 2}, req.Cutoffs)
	assert.Equal(t, models.PolygonDetailHigh, req.PolygonDetail)
	assert.True(t, req.ReturnPolygons)

	again, err := BuildServiceArea(serviceAreaParams(), src, opts)
	require.NoError(t, err)
	assert.Equal(t, req, again)
}

func TestBuildServiceAreaDefaults(t *testing.T) {
	src := &fakeSource{facilities: []models.Facility{{Position: pointB}}}

	req, err := BuildServiceArea(serviceAreaParams(), src, models.ServiceAreaOptions{})
	require.NoError(t, err)

	assert.Equal(t, []float64{5}, req.Cutoffs)
	assert.Equal(t, models.PolygonDetailStandard, req.PolygonDetail)
	assert.Empty(t, req.Barriers)
}

func TestGraphicsFillStyle(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}
	result := &models.ServiceAreaResult{
		Facilities: [][]models.ServiceAreaPolygon{
			{{Cutoff: 2, Geometry: square}, {Cutoff: 5, Geometry: square}, {Cutoff: 10, Geometry: square}},
			{{Cutoff: 2, Geometry: square}},
		},
	}

	graphics := Graphics(result, 1)
	require.Len(t, graphics, 3)
	var styles []int
	for _, g := range graphics {
		assert.Equal(t, 0, g.FacilityIndex)
		styles = append(styles, g.StyleIndex)
	}
	assert.Equal(t, []int{0, 1, 0}, styles)

	all := Graphics(result, 3)
	require.Len(t, all, 4)
	assert.Equal(t, 1, all[3].FacilityIndex)
	assert.Equal(t, 0, all[3].StyleIndex)
}

func TestExecutionFailedKeepsMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := ExecutionFailed("Routing error", "Couldn't calculate route.", cause)

	assert.Equal(t, CodeSolverExecutionFailed, err.Code)
	assert.Contains(t, err.Message, "connection refused")
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrSolverExecutionFailed))
}

func TestActionNotAllowed(t *testing.T) {
	err := ActionNotAllowed("reset", "routing")
	assert.True(t, errors.Is(err, ErrActionNotAllowed))
	assert.Equal(t, "Cannot reset while routing.", err.Message)
}
