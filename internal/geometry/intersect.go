package geometry

import (
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// SegmentsIntersect reports whether the geodesic a1-a2 crosses b1-b2.
// Segments sharing an endpoint count as intersecting.
func SegmentsIntersect(a1, a2, b1, b2 orb.Point) bool {
	return s2.CrossingSign(spherePoint(a1), spherePoint(a2), spherePoint(b1), spherePoint(b2)) != s2.DoNotCross
}

// SegmentCrossesLine reports whether segment a-b intersects any edge of line
func SegmentCrossesLine(a, b orb.Point, line orb.LineString) bool {
	if len(line) < 2 {
		return false
	}
	crosser := s2.NewChainEdgeCrosser(spherePoint(a), spherePoint(b), spherePoint(line[0]))
	for _, p := range line[1:] {
		if crosser.ChainCrossingSign(spherePoint(p)) != s2.DoNotCross {
			return true
		}
	}
	return false
}

// LineEntersPolygon reports whether any vertex of ls lies inside poly or
// any segment of ls crosses the polygon boundary.
func LineEntersPolygon(ls orb.LineString, poly orb.Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	if !ls.Bound().Intersects(poly.Bound()) {
		return false
	}
	for _, p := range ls {
		if planar.PolygonContains(poly, p) {
			return true
		}
	}
	for i := 1; i < len(ls); i++ {
		for _, ring := range poly {
			if SegmentCrossesLine(ls[i-1], ls[i], orb.LineString(ring)) {
				return true
			}
		}
	}
	return false
}

func spherePoint(p orb.Point) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon()))
}
