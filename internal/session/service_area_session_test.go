package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barrier-router/internal/models"
	"barrier-router/internal/request"
	"barrier-router/internal/solver"
	"barrier-router/internal/testutil"
)

func TestServiceAreaSession_DefaultCutoffs(t *testing.T) {
	h := newHarness()
	s := h.startServiceArea(t)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	require.NotNil(t, snap.ServiceAreaOptions)
	assert.Equal(t, []float64{5, 2}, snap.ServiceAreaOptions.Cutoffs)
	assert.Equal(t, models.PolygonDetailHigh, snap.ServiceAreaOptions.PolygonDetail)
}

func TestServiceAreaSession_RequiresFacility(t *testing.T) {
	h := newHarness()
	s := h.startServiceArea(t)

	ch, err := s.Solve()
	assert.Nil(t, ch)
	require.ErrorIs(t, err, request.ErrInsufficientFacilities)
	assert.Equal(t, 0, h.gateway.Calls("SolveServiceArea"))

	records := h.history.Records()
	require.Len(t, records, 1)
	assert.Equal(t, models.SolveOutcomeRejected, records[0].Outcome)
	assert.Equal(t, models.SolveKindServiceArea, records[0].Kind)
}

func TestServiceAreaSession_FillStylesAlternate(t *testing.T) {
	h := newHarness()
	s := h.startServiceArea(t)
	require.NoError(t, s.SetOptions(models.ServiceAreaOptions{Cutoffs: []float64{5, 2, 1}}))

	setMode(t, s, ModeAddingFacilities)
	tapAll(t, s, pointA)

	ch, err := s.Solve()
	require.NoError(t, err)
	outcome := awaitOutcome(t, ch)
	require.True(t, outcome.Succeeded)
	assert.Equal(t, ModeReady, outcome.Mode)

	require.Len(t, outcome.ServiceAreas, 3)
	var styles []int
	for _, g := range outcome.ServiceAreas {
		assert.Equal(t, 0, g.FacilityIndex)
		styles = append(styles, g.StyleIndex)
	}
	assert.Equal(t, []int{0, 1, 0}, styles)
	assert.Equal(t, []float64{5, 2, 1}, h.gateway.LastServiceAreaRequest().Cutoffs)
	assert.Len(t, h.mutations(MutationServiceAreasDisplayed), 1)
}

func TestServiceAreaSession_ResultReplacesPolygons(t *testing.T) {
	h := newHarness()
	s := h.startServiceArea(t)
	setMode(t, s, ModeAddingFacilities)
	tapAll(t, s, pointA, pointB)

	for i := 0; i < 2; i++ {
		ch, err := s.Solve()
		require.NoError(t, err)
		require.True(t, awaitOutcome(t, ch).Succeeded)
	}

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.ServiceAreas, 4, "two facilities with two cutoffs each")
}

func TestServiceAreaSession_CommitsBarrierLines(t *testing.T) {
	h := newHarness()
	s := h.startServiceArea(t)

	setMode(t, s, ModeAddingBarrierLines)
	tapAll(t, s, pointA, pointB)
	setMode(t, s, ModeAddingFacilities)
	tapAll(t, s, pointC)
	setMode(t, s, ModeAddingBarrierLines)
	tapAll(t, s, pointB)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.BarrierLines, 1)
	assert.Len(t, snap.CurrentLine.Vertices, 1)

	setMode(t, s, ModeAddingBarrierLines)
	tapAll(t, s, pointA, pointC)

	ch, err := s.Solve()
	require.NoError(t, err)
	require.True(t, awaitOutcome(t, ch).Succeeded)

	req := h.gateway.LastServiceAreaRequest()
	require.NotNil(t, req)
	require.Len(t, req.Barriers, 2)
	assert.Equal(t, []models.Coordinates{pointA, pointB}, req.Barriers[0].Vertices)
	assert.Equal(t, []models.Coordinates{pointA, pointC}, req.Barriers[1].Vertices)
	assert.Equal(t, []models.Facility{{Position: pointC}}, req.Facilities)
}

func TestServiceAreaSession_OutOfCoverage(t *testing.T) {
	h := newHarness()
	h.gateway.SolveServiceAreaFunc = func(ctx context.Context, req *models.ServiceAreaRequest) (*models.ServiceAreaResult, error) {
		return nil, fmt.Errorf("facility 1: %w", solver.ErrOutOfCoverage)
	}
	s := h.startServiceArea(t)
	setMode(t, s, ModeAddingFacilities)
	tapAll(t, s, models.Coordinates{Lat: 0, Lng: 0})

	ch, err := s.Solve()
	require.NoError(t, err)
	outcome := awaitOutcome(t, ch)

	assert.False(t, outcome.Succeeded)
	require.NotNil(t, outcome.Err)
	assert.Equal(t, request.CodeSolverExecutionFailed, outcome.Err.Code)
	assert.Equal(t, "Facility not within the service area! Message: facility 1: "+solver.ErrOutOfCoverage.Error(), outcome.Err.Message)
	assert.Equal(t, ModeReady, outcome.Mode)
	assert.Equal(t, 1, h.reporter.Count())
}

func TestServiceAreaSession_OtherFailure(t *testing.T) {
	h := newHarness()
	h.gateway.SolveServiceAreaFunc = func(ctx context.Context, req *models.ServiceAreaRequest) (*models.ServiceAreaResult, error) {
		return nil, &solver.ErrSolveFailed{Operation: "table", Reason: "HTTP 500"}
	}
	s := h.startServiceArea(t)
	setMode(t, s, ModeAddingFacilities)
	tapAll(t, s, pointA)

	ch, err := s.Solve()
	require.NoError(t, err)
	outcome := awaitOutcome(t, ch)

	require.NotNil(t, outcome.Err)
	assert.Equal(t, "Error getting the service area result: Message: table failed: HTTP 500", outcome.Err.Message)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.ServiceAreas)
	assert.Equal(t, ModeReady, snap.Mode)
}

func TestServiceAreaSession_Reset(t *testing.T) {
	h := newHarness()
	s := h.startServiceArea(t)

	setMode(t, s, ModeAddingFacilities)
	tapAll(t, s, pointA)
	setMode(t, s, ModeAddingBarrierLines)
	tapAll(t, s, pointB, pointC)
	ch, err := s.Solve()
	require.NoError(t, err)
	require.True(t, awaitOutcome(t, ch).Succeeded)
	setMode(t, s, ModeAddingBarrierLines)
	tapAll(t, s, pointA)

	aff, err := s.Reset()
	require.NoError(t, err)
	assert.Equal(t, AffordancesFor(ModeReady), aff)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, ModeReady, snap.Mode)
	assert.Empty(t, snap.Facilities)
	assert.Empty(t, snap.BarrierLines)
	assert.Empty(t, snap.CurrentLine.Vertices)
	assert.Empty(t, snap.ServiceAreas)

	m, err := s.Tap(pointA)
	require.NoError(t, err)
	assert.True(t, m.IsNone(), "reset deselects the entry mode")
}

func TestServiceAreaSession_SetModeRejectsRouteModes(t *testing.T) {
	h := newHarness()
	s := h.startServiceArea(t)

	for _, m := range []Mode{ModeAddingStops, ModeAddingBarriers, ModeAddingCircle, ModeRouting} {
		_, err := s.SetMode(m)
		assert.ErrorIs(t, err, request.ErrActionNotAllowed, m.String())
	}
}

func TestServiceAreaSession_ModeTransitionsAroundSolve(t *testing.T) {
	tests := []struct {
		name     string
		solveErr error
	}{
		{"success", nil},
		{"failure", &solver.ErrSolveFailed{Operation: "table", Reason: "HTTP 500"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			gate := testutil.NewGate()
			h.gateway.SolveServiceAreaFunc = func(ctx context.Context, req *models.ServiceAreaRequest) (*models.ServiceAreaResult, error) {
				if err := gate.Wait(ctx); err != nil {
					return nil, err
				}
				if tt.solveErr != nil {
					return nil, tt.solveErr
				}
				return testutil.SquareServiceAreas(req), nil
			}
			s := h.startServiceArea(t)
			setMode(t, s, ModeAddingFacilities)
			tapAll(t, s, pointA)

			ch, err := s.Solve()
			require.NoError(t, err)
			<-gate.Entered()

			snap, err := s.Snapshot()
			require.NoError(t, err)
			assert.Equal(t, ModeRouting, snap.Mode)
			assert.Equal(t, Affordances{}, snap.Affordances)

			_, err = s.Solve()
			assert.ErrorIs(t, err, request.ErrActionNotAllowed)
			_, err = s.SetMode(ModeAddingFacilities)
			assert.ErrorIs(t, err, request.ErrActionNotAllowed)
			_, err = s.Reset()
			assert.ErrorIs(t, err, request.ErrActionNotAllowed)

			m, err := s.Tap(pointB)
			require.NoError(t, err)
			assert.True(t, m.IsNone(), "taps are inert while solving")

			gate.Release()
			outcome := awaitOutcome(t, ch)
			assert.Equal(t, tt.solveErr == nil, outcome.Succeeded)
			assert.Equal(t, ModeReady, outcome.Mode)
			assert.Equal(t, AffordancesFor(ModeReady), outcome.Affordances)
			assert.Equal(t, 1, h.gateway.Calls("SolveServiceArea"))

			snap, err = s.Snapshot()
			require.NoError(t, err)
			assert.Equal(t, []models.Facility{{Position: pointA}}, snap.Facilities, "tap while solving added nothing")
			if tt.solveErr != nil {
				require.NotNil(t, outcome.Err)
				assert.Equal(t, request.CodeSolverExecutionFailed, outcome.Err.Code)
				assert.Empty(t, snap.ServiceAreas)
			} else {
				assert.Len(t, snap.ServiceAreas, 2)
			}
		})
	}
}

func TestServiceAreaSession_SolveClearsPreviousPolygons(t *testing.T) {
	h := newHarness()
	s := h.startServiceArea(t)
	setMode(t, s, ModeAddingFacilities)
	tapAll(t, s, pointA)

	ch, err := s.Solve()
	require.NoError(t, err)
	require.True(t, awaitOutcome(t, ch).Succeeded)
	assert.Empty(t, h.mutations(MutationServiceAreasCleared), "nothing to clear on the first solve")

	h.gateway.SolveServiceAreaFunc = func(ctx context.Context, req *models.ServiceAreaRequest) (*models.ServiceAreaResult, error) {
		return nil, errors.New("network down")
	}
	ch, err = s.Solve()
	require.NoError(t, err)
	assert.False(t, awaitOutcome(t, ch).Succeeded)

	cleared := h.mutations(MutationServiceAreasCleared)
	require.Len(t, cleared, 1)
	assert.Equal(t, ModeReady, cleared[0].Mode, "cleared before entering routing")

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.ServiceAreas)
}
