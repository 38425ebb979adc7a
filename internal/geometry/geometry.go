package geometry

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"barrier-router/internal/models"
)

// EarthRadiusMeters is the mean radius of the Earth
const EarthRadiusMeters = 6371000.0

// DefaultSegments is the number of vertices used to approximate a circle
const DefaultSegments = 64

// LinearUnit is the unit a buffer distance is expressed in
type LinearUnit string

const (
	Meters     LinearUnit = "meters"
	Kilometers LinearUnit = "kilometers"
	Feet       LinearUnit = "feet"
)

// ToMeters converts a distance in this unit to meters
func (u LinearUnit) ToMeters(v float64) float64 {
	switch u {
	case Kilometers:
		return v * 1000
	case Feet:
		return v * 0.3048
	default:
		return v
	}
}

// Engine normalizes tapped coordinates and buffers them into polygons.
// Implementations must be deterministic for identical inputs.
type Engine interface {
	Normalize(c models.Coordinates) models.Coordinates
	BufferGeodetic(c models.Coordinates, radius float64, unit LinearUnit) orb.Polygon
	BufferPlanar(c models.Coordinates, radius float64) orb.Polygon
}

// SphericalEngine computes geodesic buffers on the sphere and planar
// buffers in Web Mercator map units.
type SphericalEngine struct {
	segments int
}

// NewEngine creates a SphericalEngine approximating circles with DefaultSegments vertices
func NewEngine() *SphericalEngine {
	return &SphericalEngine{segments: DefaultSegments}
}

// NewEngineWithSegments creates a SphericalEngine with a custom vertex count (minimum 8)
func NewEngineWithSegments(segments int) *SphericalEngine {
	if segments < 8 {
		segments = 8
	}
	return &SphericalEngine{segments: segments}
}

// Normalize clamps latitude and wraps longitude into [-180, 180]
func (e *SphericalEngine) Normalize(c models.Coordinates) models.Coordinates {
	ll := s2.LatLngFromDegrees(c.Lat, c.Lng).Normalized()
	return models.Coordinates{Lat: ll.Lat.Degrees(), Lng: ll.Lng.Degrees()}
}

// BufferGeodetic returns a polygon whose vertices all lie at the given
// great-circle distance from c.
func (e *SphericalEngine) BufferGeodetic(c models.Coordinates, radius float64, unit LinearUnit) orb.Polygon {
	meters := unit.ToMeters(radius)
	ring := make(orb.Ring, 0, e.segments+1)
	for i := 0; i < e.segments; i++ {
		// counter-clockwise from north
		bearing := -2 * math.Pi * float64(i) / float64(e.segments)
		ring = append(ring, Destination(c, bearing, meters).Point())
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// BufferPlanar returns a circle of the given radius in Web Mercator units
// around c, converted back to WGS84.
func (e *SphericalEngine) BufferPlanar(c models.Coordinates, radius float64) orb.Polygon {
	center := project.WGS84.ToMercator(c.Point())
	ring := make(orb.Ring, 0, e.segments+1)
	for i := 0; i < e.segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(e.segments)
		m := orb.Point{
			center.X() + radius*math.Cos(theta),
			center.Y() + radius*math.Sin(theta),
		}
		ring = append(ring, project.Mercator.ToWGS84(m))
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// Destination returns the point reached by travelling meters along the
// great circle leaving c at bearing (radians, clockwise from north).
func Destination(c models.Coordinates, bearing, meters float64) models.Coordinates {
	ll := s2.LatLngFromDegrees(c.Lat, c.Lng)
	origin := s2.PointFromLatLng(ll)

	lat, lng := ll.Lat.Radians(), ll.Lng.Radians()
	north := r3.Vector{
		X: -math.Sin(lat) * math.Cos(lng),
		Y: -math.Sin(lat) * math.Sin(lng),
		Z: math.Cos(lat),
	}
	east := r3.Vector{X: -math.Sin(lng), Y: math.Cos(lng), Z: 0}
	dir := north.Mul(math.Cos(bearing)).Add(east.Mul(math.Sin(bearing)))

	angle := s1.Angle(meters / EarthRadiusMeters)
	v := origin.Vector.Mul(math.Cos(angle.Radians())).Add(dir.Mul(math.Sin(angle.Radians())))

	out := s2.LatLngFromPoint(s2.Point{Vector: v.Normalize()})
	return models.Coordinates{Lat: out.Lat.Degrees(), Lng: out.Lng.Degrees()}
}

// Distance returns the great-circle distance between a and b in meters
func Distance(a, b models.Coordinates) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}
