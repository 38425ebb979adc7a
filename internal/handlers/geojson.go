package handlers

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"barrier-router/internal/models"
	"barrier-router/internal/session"
)

// Feature layers shown on the map
const (
	layerStop        = "stop"
	layerBarrier     = "barrier"
	layerCircle      = "circle"
	layerMarker      = "marker"
	layerRoute       = "route"
	layerFacility    = "facility"
	layerBarrierLine = "barrier_line"
	layerServiceArea = "service_area"
)

func feature(g orb.Geometry, layer string) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties["layer"] = layer
	return f
}

func stopFeature(s models.Stop) *geojson.Feature {
	f := feature(s.Position.Point(), layerStop)
	f.Properties["label"] = s.Label
	return f
}

func barrierFeature(b models.BarrierRegion) *geojson.Feature {
	f := feature(b.Polygon, layerBarrier)
	f.Properties["radius_meters"] = b.RadiusMeters
	return f
}

func circleFeature(c models.CircleBuffer) *geojson.Feature {
	f := feature(c.Polygon, layerCircle)
	f.Properties["radius"] = c.Radius
	return f
}

func routeFeature(r *models.Route) *geojson.Feature {
	f := feature(r.Geometry, layerRoute)
	f.Properties["distance_meters"] = r.DistanceMeters
	f.Properties["duration_secs"] = r.DurationSecs
	return f
}

func lineFeature(l models.BarrierLine, committed bool) *geojson.Feature {
	f := feature(l.LineString(), layerBarrierLine)
	f.Properties["committed"] = committed
	return f
}

func serviceAreaFeature(g models.ServiceAreaGraphic) *geojson.Feature {
	f := feature(g.Geometry, layerServiceArea)
	f.Properties["facility_index"] = g.FacilityIndex
	f.Properties["polygon_index"] = g.PolygonIndex
	f.Properties["style_index"] = g.StyleIndex
	f.Properties["cutoff"] = g.Cutoff
	return f
}

// mutationFeatures returns the features a mutation adds to the map
func mutationFeatures(m session.Mutation) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	switch m.Kind {
	case session.MutationStopAdded:
		fc.Append(stopFeature(*m.Stop))
	case session.MutationBarrierAdded:
		fc.Append(barrierFeature(*m.Barrier))
	case session.MutationCircleAdded:
		fc.Append(circleFeature(*m.Circle))
		if m.Marker != nil {
			fc.Append(feature(m.Marker.Point(), layerMarker))
		}
	case session.MutationFacilityAdded:
		fc.Append(feature(m.Facility.Position.Point(), layerFacility))
	case session.MutationBarrierVertexAdded:
		fc.Append(lineFeature(*m.BarrierLine, false))
	case session.MutationRouteDisplayed:
		fc.Append(routeFeature(m.Route))
	case session.MutationServiceAreasDisplayed:
		for _, g := range m.ServiceAreas {
			fc.Append(serviceAreaFeature(g))
		}
	}
	return fc
}

// snapshotFeatures returns every overlay currently drawn for a session
func snapshotFeatures(snap session.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, g := range snap.ServiceAreas {
		fc.Append(serviceAreaFeature(g))
	}
	if snap.Route != nil {
		fc.Append(routeFeature(snap.Route))
	}
	for _, b := range snap.Barriers {
		fc.Append(barrierFeature(b))
	}
	for _, c := range snap.Circles {
		fc.Append(circleFeature(c))
	}
	for _, m := range snap.Markers {
		fc.Append(feature(m.Point(), layerMarker))
	}
	for _, s := range snap.Stops {
		fc.Append(stopFeature(s))
	}
	for _, l := range snap.BarrierLines {
		fc.Append(lineFeature(l, true))
	}
	if snap.CurrentLine != nil && len(snap.CurrentLine.Vertices) > 0 {
		fc.Append(lineFeature(*snap.CurrentLine, false))
	}
	for _, f := range snap.Facilities {
		fc.Append(feature(f.Position.Point(), layerFacility))
	}
	return fc
}
