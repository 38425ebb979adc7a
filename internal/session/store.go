package session

import (
	"strconv"

	"barrier-router/internal/models"
)

// StopBarrierStore holds the route screen's accumulated input and display
// artifacts. It is owned by a single interaction loop and is not
// safe for concurrent use.
type StopBarrierStore struct {
	stops    []models.Stop
	barriers []models.BarrierRegion
	circles  []models.CircleBuffer
	markers  []models.Coordinates

	route      *models.Route
	directions []models.DirectionManeuver
}

// AddStop appends a stop labeled with its 1-based position
func (s *StopBarrierStore) AddStop(c models.Coordinates) models.Stop {
	stop := models.Stop{Position: c, Label: strconv.Itoa(len(s.stops) + 1)}
	s.stops = append(s.stops, stop)
	return stop
}

func (s *StopBarrierStore) AddBarrier(b models.BarrierRegion) {
	s.barriers = append(s.barriers, b)
}

// AddCircle appends a circle buffer and the marker for its tap
func (s *StopBarrierStore) AddCircle(c models.CircleBuffer) {
	s.circles = append(s.circles, c)
	s.markers = append(s.markers, c.Center)
}

func (s *StopBarrierStore) StopCount() int    { return len(s.stops) }
func (s *StopBarrierStore) BarrierCount() int { return len(s.barriers) }

// Stops returns a copy of the stops in insertion order
func (s *StopBarrierStore) Stops() []models.Stop {
	return append([]models.Stop{}, s.stops...)
}

func (s *StopBarrierStore) Barriers() []models.BarrierRegion {
	return append([]models.BarrierRegion{}, s.barriers...)
}

func (s *StopBarrierStore) Circles() []models.CircleBuffer {
	return append([]models.CircleBuffer{}, s.circles...)
}

func (s *StopBarrierStore) Markers() []models.Coordinates {
	return append([]models.Coordinates{}, s.markers...)
}

// SetRoute replaces the displayed route and its directions
func (s *StopBarrierStore) SetRoute(r models.Route) {
	s.route = &r
	s.directions = append([]models.DirectionManeuver{}, r.Directions...)
}

func (s *StopBarrierStore) Route() *models.Route {
	if s.route == nil {
		return nil
	}
	r := *s.route
	return &r
}

func (s *StopBarrierStore) Directions() []models.DirectionManeuver {
	return append([]models.DirectionManeuver{}, s.directions...)
}

// Reset empties every collection and display artifact
func (s *StopBarrierStore) Reset() {
	*s = StopBarrierStore{}
}

// IsEmpty reports whether the store holds nothing at all
func (s *StopBarrierStore) IsEmpty() bool {
	return len(s.stops) == 0 && len(s.barriers) == 0 && len(s.circles) == 0 &&
		len(s.markers) == 0 && s.route == nil && len(s.directions) == 0
}

// FacilityStore holds the service area screen's facilities, barrier lines
// and solved polygons. Like StopBarrierStore it belongs to one loop.
type FacilityStore struct {
	facilities []models.Facility
	lines      []models.BarrierLine
	current    []models.Coordinates
	graphics   []models.ServiceAreaGraphic
}

func (s *FacilityStore) AddFacility(c models.Coordinates) models.Facility {
	f := models.Facility{Position: c}
	s.facilities = append(s.facilities, f)
	return f
}

// AddVertex appends c to the in-progress barrier line and returns it
func (s *FacilityStore) AddVertex(c models.Coordinates) models.BarrierLine {
	s.current = append(s.current, c)
	return s.CurrentLine()
}

// CommitLine closes the in-progress line and starts a new one. Lines with
// fewer than two vertices are dropped.
func (s *FacilityStore) CommitLine() bool {
	committed := len(s.current) >= 2
	if committed {
		s.lines = append(s.lines, models.BarrierLine{Vertices: s.current})
	}
	s.current = nil
	return committed
}

func (s *FacilityStore) FacilityCount() int { return len(s.facilities) }

func (s *FacilityStore) Facilities() []models.Facility {
	return append([]models.Facility{}, s.facilities...)
}

func (s *FacilityStore) CommittedLines() []models.BarrierLine {
	out := make([]models.BarrierLine, len(s.lines))
	for i, l := range s.lines {
		out[i] = models.BarrierLine{Vertices: append([]models.Coordinates{}, l.Vertices...)}
	}
	return out
}

func (s *FacilityStore) CurrentLine() models.BarrierLine {
	return models.BarrierLine{Vertices: append([]models.Coordinates{}, s.current...)}
}

// SetGraphics replaces the displayed service area polygons
func (s *FacilityStore) SetGraphics(g []models.ServiceAreaGraphic) {
	s.graphics = append([]models.ServiceAreaGraphic{}, g...)
}

func (s *FacilityStore) Graphics() []models.ServiceAreaGraphic {
	return append([]models.ServiceAreaGraphic{}, s.graphics...)
}

func (s *FacilityStore) Reset() {
	*s = FacilityStore{}
}

func (s *FacilityStore) IsEmpty() bool {
	return len(s.facilities) == 0 && len(s.lines) == 0 && len(s.current) == 0 && len(s.graphics) == 0
}
