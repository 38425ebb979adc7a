package models

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Point converts the coordinates to an orb point (lng, lat order)
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// CoordinatesFromPoint converts an orb point back to coordinates
func CoordinatesFromPoint(p orb.Point) Coordinates {
	return Coordinates{Lat: p.Lat(), Lng: p.Lon()}
}

// RoundCoordinate rounds a coordinate to 5 decimal places (~1m precision)
func RoundCoordinate(v float64) float64 {
	return math.Round(v*100000) / 100000
}

// Stop is an ordered waypoint the route must visit
type Stop struct {
	Position Coordinates `json:"position"`
	Label    string      `json:"label"`
}

// BarrierRegion is a polygon the route must avoid
type BarrierRegion struct {
	Center       Coordinates `json:"center"`
	RadiusMeters float64     `json:"radius_meters"`
	Polygon      orb.Polygon `json:"polygon"`
}

// CircleBuffer is a planar buffer drawn around a tap, with its tap marker
type CircleBuffer struct {
	Center  Coordinates `json:"center"`
	Radius  float64     `json:"radius"`
	Polygon orb.Polygon `json:"polygon"`
}

// Facility is a point around which a service area is computed
type Facility struct {
	Position Coordinates `json:"position"`
}

// BarrierLine is a polyline the service area computation must not cross
type BarrierLine struct {
	Vertices []Coordinates `json:"vertices"`
}

// LineString returns the barrier as an orb line string
func (l BarrierLine) LineString() orb.LineString {
	ls := make(orb.LineString, len(l.Vertices))
	for i, v := range l.Vertices {
		ls[i] = v.Point()
	}
	return ls
}

// RouteOptions holds the three stop-sequencing toggles.
// PreserveFirstStop and PreserveLastStop only modify FindBestSequence.
type RouteOptions struct {
	FindBestSequence  bool `json:"find_best_sequence"`
	PreserveFirstStop bool `json:"preserve_first_stop"`
	PreserveLastStop  bool `json:"preserve_last_stop"`
}

// PolygonDetail controls how finely service area polygons are traced
type PolygonDetail string

const (
	PolygonDetailLow      PolygonDetail = "low"
	PolygonDetailStandard PolygonDetail = "standard"
	PolygonDetailHigh     PolygonDetail = "high"
)

// ServiceAreaOptions holds the impedance cutoffs (minutes) and polygon detail
type ServiceAreaOptions struct {
	Cutoffs       []float64     `json:"cutoffs"`
	PolygonDetail PolygonDetail `json:"polygon_detail"`
}

// WithCutoffs returns a copy with the given cutoffs appended, keeping
// insertion order and skipping values already present.
func (o ServiceAreaOptions) WithCutoffs(cutoffs ...float64) ServiceAreaOptions {
	out := ServiceAreaOptions{
		Cutoffs:       make([]float64, 0, len(o.Cutoffs)+len(cutoffs)),
		PolygonDetail: o.PolygonDetail,
	}
	seen := make(map[float64]bool)
	for _, c := range append(append([]float64{}, o.Cutoffs...), cutoffs...) {
		if seen[c] {
			continue
		}
		seen[c] = true
		out.Cutoffs = append(out.Cutoffs, c)
	}
	return out
}

// RouteParameters are the solver's default route parameters
type RouteParameters struct {
	Profile  string    `json:"profile"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ServiceAreaParameters are the solver's default service area parameters
type ServiceAreaParameters struct {
	Profile        string        `json:"profile"`
	DefaultCutoffs []float64     `json:"default_cutoffs"`
	PolygonDetail  PolygonDetail `json:"polygon_detail"`
	LoadedAt       time.Time     `json:"loaded_at"`
}

// RouteRequest is the payload submitted to the route solver
type RouteRequest struct {
	Profile          string          `json:"profile"`
	Stops            []Stop          `json:"stops"`
	Barriers         []BarrierRegion `json:"barriers"`
	ReturnStops      bool            `json:"return_stops"`
	ReturnDirections bool            `json:"return_directions"`
	Options          RouteOptions    `json:"options"`
}

// ServiceAreaRequest is the payload submitted to the service area solver
type ServiceAreaRequest struct {
	Profile        string        `json:"profile"`
	Facilities     []Facility    `json:"facilities"`
	Barriers       []BarrierLine `json:"barriers"`
	Cutoffs        []float64     `json:"cutoffs"`
	PolygonDetail  PolygonDetail `json:"polygon_detail"`
	ReturnPolygons bool          `json:"return_polygons"`
}

// DirectionManeuver is a single human-readable routing instruction
type DirectionManeuver struct {
	Text           string  `json:"text"`
	DistanceMeters float64 `json:"distance_meters"`
	DurationSecs   float64 `json:"duration_secs"`
}

// Route is one solved route
type Route struct {
	Geometry       orb.LineString      `json:"geometry"`
	Directions     []DirectionManeuver `json:"directions"`
	Stops          []Stop              `json:"stops"`
	DistanceMeters float64             `json:"distance_meters"`
	DurationSecs   float64             `json:"duration_secs"`
}

// RouteResult is what the route solver returns
type RouteResult struct {
	Routes []Route `json:"routes"`
}

// ServiceAreaPolygon is a reachability polygon for a single cutoff
type ServiceAreaPolygon struct {
	Cutoff   float64     `json:"cutoff"`
	Geometry orb.Polygon `json:"geometry"`
}

// ServiceAreaResult holds polygons per facility, indexed like the request facilities
type ServiceAreaResult struct {
	Facilities [][]ServiceAreaPolygon `json:"facilities"`
}

// ResultPolygons returns the polygons solved for facility i
func (r *ServiceAreaResult) ResultPolygons(i int) []ServiceAreaPolygon {
	if r == nil || i < 0 || i >= len(r.Facilities) {
		return nil
	}
	return r.Facilities[i]
}

// ServiceAreaGraphic is a service area polygon ready for display
type ServiceAreaGraphic struct {
	FacilityIndex int         `json:"facility_index"`
	PolygonIndex  int         `json:"polygon_index"`
	StyleIndex    int         `json:"style_index"`
	Cutoff        float64     `json:"cutoff"`
	Geometry      orb.Polygon `json:"geometry"`
}

// SolveKind identifies which solver operation was attempted
type SolveKind string

const (
	SolveKindRoute       SolveKind = "route"
	SolveKindServiceArea SolveKind = "service_area"
)

// SolveOutcome is the terminal state of a solve attempt
type SolveOutcome string

const (
	SolveOutcomeRejected  SolveOutcome = "rejected"
	SolveOutcomeSucceeded SolveOutcome = "succeeded"
	SolveOutcomeFailed    SolveOutcome = "failed"
)

// SolveRecord is a persisted solve attempt
type SolveRecord struct {
	ID         int64         `json:"id"`
	SessionID  string        `json:"session_id"`
	Kind       SolveKind     `json:"kind"`
	Outcome    SolveOutcome  `json:"outcome"`
	Code       string        `json:"code,omitempty"`
	Message    string        `json:"message,omitempty"`
	Stops      int           `json:"stops"`
	Barriers   int           `json:"barriers"`
	Facilities int           `json:"facilities"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
}
