package solver

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"barrier-router/internal/geometry"
	"barrier-router/internal/models"
)

// samplesPerBearing is the number of rings sampled out to the maximum reach
const samplesPerBearing = 6

// bearingCount maps polygon detail to the number of sampled bearings
func bearingCount(detail models.PolygonDetail) int {
	switch detail {
	case models.PolygonDetailLow:
		return 8
	case models.PolygonDetailHigh:
		return 32
	default:
		return 16
	}
}

// SolveServiceArea traces one polygon per cutoff around every facility by
// sampling travel times along evenly spaced bearings.
func (c *OSRMGateway) SolveServiceArea(ctx context.Context, req *models.ServiceAreaRequest) (*models.ServiceAreaResult, error) {
	const op = "solve service area"

	if len(req.Facilities) == 0 {
		return nil, &ErrSolveFailed{Operation: op, Reason: "at least one facility is required"}
	}
	if len(req.Cutoffs) == 0 {
		return nil, &ErrSolveFailed{Operation: op, Reason: "at least one cutoff is required"}
	}

	key, err := CacheKey("service_area", req)
	if err != nil {
		return nil, err
	}
	var cached models.ServiceAreaResult
	if c.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	maxCutoff := 0.0
	for _, cutoff := range req.Cutoffs {
		maxCutoff = math.Max(maxCutoff, cutoff)
	}
	reach := maxCutoff / 60 * c.speedKmh * 1000
	bearings := bearingCount(req.PolygonDetail)

	lines := make([]orb.LineString, 0, len(req.Barriers))
	for _, b := range req.Barriers {
		if len(b.Vertices) >= 2 {
			lines = append(lines, b.LineString())
		}
	}

	c.logger.Info("[OSRM] Service area request",
		zap.Int("facilities", len(req.Facilities)),
		zap.Int("barriers", len(lines)),
		zap.Float64s("cutoffs", req.Cutoffs),
		zap.Int("bearings", bearings),
		zap.Float64("reach_meters", reach))

	result := &models.ServiceAreaResult{Facilities: make([][]models.ServiceAreaPolygon, len(req.Facilities))}
	for i, f := range req.Facilities {
		polygons, err := c.traceFacility(ctx, c.profileOr(req.Profile), f.Position, req.Cutoffs, bearings, reach, lines)
		if err != nil {
			return nil, fmt.Errorf("facility %d: %w", i+1, err)
		}
		result.Facilities[i] = polygons
	}

	c.toCache(ctx, key, result)
	return result, nil
}

func (c *OSRMGateway) traceFacility(ctx context.Context, profile string, origin models.Coordinates, cutoffs []float64, bearings int, reach float64, lines []orb.LineString) ([]models.ServiceAreaPolygon, error) {
	samples := make([]models.Coordinates, 0, bearings*samplesPerBearing)
	for b := 0; b < bearings; b++ {
		bearing := -2 * math.Pi * float64(b) / float64(bearings)
		for k := 1; k <= samplesPerBearing; k++ {
			samples = append(samples, geometry.Destination(origin, bearing, reach*float64(k)/samplesPerBearing))
		}
	}

	durations, err := c.durationsFrom(ctx, profile, origin, samples)
	if err != nil {
		return nil, err
	}

	// blocked[i] is set when the straight segment to sample i crosses a barrier line
	blocked := make([]bool, len(samples))
	for i, s := range samples {
		for _, line := range lines {
			if geometry.SegmentCrossesLine(origin.Point(), s.Point(), line) {
				blocked[i] = true
				break
			}
		}
	}

	reachable := false
	for i, d := range durations {
		if d != nil && !blocked[i] {
			reachable = true
			break
		}
	}
	if !reachable {
		return nil, fmt.Errorf("%w: no sampled point around (%.5f, %.5f) can be reached", ErrOutOfCoverage, origin.Lat, origin.Lng)
	}

	polygons := make([]models.ServiceAreaPolygon, 0, len(cutoffs))
	for _, cutoff := range cutoffs {
		limit := cutoff * 60
		ring := make(orb.Ring, 0, bearings+1)
		for b := 0; b < bearings; b++ {
			p := origin.Point()
			for k := samplesPerBearing - 1; k >= 0; k-- {
				i := b*samplesPerBearing + k
				if durations[i] != nil && *durations[i] <= limit && !blocked[i] {
					p = samples[i].Point()
					break
				}
			}
			ring = append(ring, p)
		}
		ring = append(ring, ring[0])
		polygons = append(polygons, models.ServiceAreaPolygon{Cutoff: cutoff, Geometry: orb.Polygon{ring}})
	}
	return polygons, nil
}

// durationsFrom returns travel times in seconds from origin to every
// destination, nil where the service finds no path. Destinations are split
// so no request exceeds maxOSRMCoordinates.
func (c *OSRMGateway) durationsFrom(ctx context.Context, profile string, origin models.Coordinates, destinations []models.Coordinates) ([]*float64, error) {
	const op = "table"

	out := make([]*float64, 0, len(destinations))
	batchSize := maxOSRMCoordinates - 1
	requests := 0

	for start := 0; start < len(destinations); start += batchSize {
		end := min(start+batchSize, len(destinations))
		batch := destinations[start:end]

		if requests > 0 && c.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, &ErrSolveFailed{Operation: op, Reason: ctx.Err().Error()}
			case <-time.After(c.batchDelay):
			}
		}

		dests := make([]string, len(batch))
		for i := range batch {
			dests[i] = strconv.Itoa(i + 1)
		}
		query := url.Values{}
		query.Set("sources", "0")
		query.Set("destinations", strings.Join(dests, ";"))
		query.Set("annotations", "duration")

		points := append([]models.Coordinates{origin}, batch...)
		var resp osrmTableResponse
		path := fmt.Sprintf("/table/v1/%s/%s", profile, formatCoordinates(points))
		if err := c.get(ctx, op, path, query, &resp); err != nil {
			return nil, err
		}
		requests++

		if len(resp.Durations) == 0 || len(resp.Durations[0]) != len(batch) {
			return nil, &ErrSolveFailed{Operation: op, Reason: "unexpected duration matrix shape"}
		}
		out = append(out, resp.Durations[0]...)
	}

	c.logger.Debug("[OSRM] Durations fetched", zap.Int("destinations", len(destinations)), zap.Int("requests", requests))
	return out, nil
}
