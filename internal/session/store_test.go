package session

import (
	"strconv"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barrier-router/internal/models"
)

func TestStopBarrierStore_LabelsFollowInsertionOrder(t *testing.T) {
	var store StopBarrierStore
	for i := 0; i < 12; i++ {
		stop := store.AddStop(models.Coordinates{Lat: float64(i), Lng: float64(-i)})
		assert.Equal(t, strconv.Itoa(i+1), stop.Label)
		if i%3 == 0 {
			store.AddBarrier(models.BarrierRegion{Center: models.Coordinates{Lat: 1}})
		}
	}

	stops := store.Stops()
	require.Len(t, stops, 12)
	assert.Equal(t, 12, store.StopCount())
	assert.Equal(t, 4, store.BarrierCount())
	for i, s := range stops {
		assert.Equal(t, strconv.Itoa(i+1), s.Label)
		assert.Equal(t, float64(i), s.Position.Lat)
	}
}

func TestStopBarrierStore_CopiesAreIndependent(t *testing.T) {
	var store StopBarrierStore
	store.AddStop(models.Coordinates{Lat: 1, Lng: 1})

	stops := store.Stops()
	stops[0].Label = "changed"
	assert.Equal(t, "1", store.Stops()[0].Label)
}

func TestStopBarrierStore_SetRouteReplaces(t *testing.T) {
	var store StopBarrierStore
	store.SetRoute(models.Route{Directions: []models.DirectionManeuver{{Text: "a"}, {Text: "b"}}})
	store.SetRoute(models.Route{
		Geometry:   orb.LineString{{0, 0}, {1, 1}},
		Directions: []models.DirectionManeuver{{Text: "c"}},
	})

	require.NotNil(t, store.Route())
	assert.Len(t, store.Route().Geometry, 2)
	assert.Equal(t, []models.DirectionManeuver{{Text: "c"}}, store.Directions())
}

func TestStopBarrierStore_ResetIsTotalAndIdempotent(t *testing.T) {
	var store StopBarrierStore
	store.AddStop(models.Coordinates{Lat: 1})
	store.AddStop(models.Coordinates{Lat: 2})
	store.AddBarrier(models.BarrierRegion{})
	store.AddCircle(models.CircleBuffer{Center: models.Coordinates{Lat: 3}})
	store.SetRoute(models.Route{Directions: []models.DirectionManeuver{{Text: "Depart"}}})
	require.False(t, store.IsEmpty())

	store.Reset()
	assert.True(t, store.IsEmpty())
	assert.Empty(t, store.Stops())
	assert.Empty(t, store.Barriers())
	assert.Empty(t, store.Circles())
	assert.Empty(t, store.Markers())
	assert.Nil(t, store.Route())
	assert.Empty(t, store.Directions())

	store.Reset()
	assert.True(t, store.IsEmpty())

	stop := store.AddStop(models.Coordinates{})
	assert.Equal(t, "1", stop.Label)
}

func TestFacilityStore_CommitLine(t *testing.T) {
	var store FacilityStore

	assert.False(t, store.CommitLine(), "empty line is dropped")

	store.AddVertex(models.Coordinates{Lat: 1, Lng: 1})
	assert.False(t, store.CommitLine(), "single vertex line is dropped")
	assert.Empty(t, store.CommittedLines())
	assert.Empty(t, store.CurrentLine().Vertices)

	store.AddVertex(models.Coordinates{Lat: 1, Lng: 1})
	line := store.AddVertex(models.Coordinates{Lat: 2, Lng: 2})
	assert.Len(t, line.Vertices, 2)
	assert.True(t, store.CommitLine())

	store.AddVertex(models.Coordinates{Lat: 5, Lng: 5})
	lines := store.CommittedLines()
	require.Len(t, lines, 1)
	assert.Equal(t, []models.Coordinates{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}, lines[0].Vertices)
	assert.Len(t, store.CurrentLine().Vertices, 1)
}

func TestFacilityStore_ResetIsTotal(t *testing.T) {
	var store FacilityStore
	store.AddFacility(models.Coordinates{Lat: 1})
	store.AddVertex(models.Coordinates{Lat: 1})
	store.AddVertex(models.Coordinates{Lat: 2})
	store.CommitLine()
	store.AddVertex(models.Coordinates{Lat: 3})
	store.SetGraphics([]models.ServiceAreaGraphic{{Cutoff: 5}})
	require.False(t, store.IsEmpty())

	store.Reset()
	store.Reset()
	assert.True(t, store.IsEmpty())
	assert.Equal(t, 0, store.FacilityCount())
	assert.Empty(t, store.Graphics())
}
