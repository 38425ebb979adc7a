package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"barrier-router/internal/geometry"
	"barrier-router/internal/models"
)

// Config configures the OSRM gateway
type Config struct {
	BaseURL           string
	Profile           string
	RequestTimeout    time.Duration
	ProbePoint        models.Coordinates
	IsochroneSpeedKmh float64
}

// maxOSRMCoordinates is the maximum number of coordinates OSRM public API accepts
const maxOSRMCoordinates = 80

// OSRMGateway implements Gateway on top of an OSRM HTTP service
type OSRMGateway struct {
	baseURL    string
	profile    string
	probe      models.Coordinates
	speedKmh   float64
	batchDelay time.Duration
	httpClient *http.Client
	cache      ResultCache
	logger     *zap.Logger
}

type osrmResponse interface {
	status() (code, message string)
}

type osrmStatus struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s osrmStatus) status() (string, string) { return s.Code, s.Message }

type osrmNearestResponse struct {
	osrmStatus
	Waypoints []struct {
		Location []float64 `json:"location"`
		Distance float64   `json:"distance"`
	} `json:"waypoints"`
}

type osrmTripResponse struct {
	osrmStatus
	Waypoints []struct {
		WaypointIndex int `json:"waypoint_index"`
		TripsIndex    int `json:"trips_index"`
	} `json:"waypoints"`
}

type osrmRouteResponse struct {
	osrmStatus
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Geometry *geojson.Geometry `json:"geometry"`
	Legs     []osrmLeg         `json:"legs"`
}

type osrmLeg struct {
	Steps []osrmStep `json:"steps"`
}

type osrmStep struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Maneuver struct {
		Type     string `json:"type"`
		Modifier string `json:"modifier"`
		Exit     int    `json:"exit"`
	} `json:"maneuver"`
}

type osrmTableResponse struct {
	osrmStatus
	Durations [][]*float64 `json:"durations"`
}

// NewOSRMGateway creates a new OSRM gateway. A nil cache disables caching.
func NewOSRMGateway(cfg Config, cache ResultCache, logger *zap.Logger) *OSRMGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.IsochroneSpeedKmh <= 0 {
		cfg.IsochroneSpeedKmh = 50
	}
	if cfg.Profile == "" {
		cfg.Profile = "driving"
	}
	return &OSRMGateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		profile:    cfg.Profile,
		probe:      cfg.ProbePoint,
		speedKmh:   cfg.IsochroneSpeedKmh,
		batchDelay: 100 * time.Millisecond,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		cache:  cache,
		logger: logger,
	}
}

func (c *OSRMGateway) LoadDefaultRouteParameters(ctx context.Context) (*models.RouteParameters, error) {
	if err := c.probeService(ctx, "load route parameters"); err != nil {
		return nil, err
	}
	return &models.RouteParameters{Profile: c.profile, LoadedAt: time.Now()}, nil
}

func (c *OSRMGateway) LoadDefaultServiceAreaParameters(ctx context.Context) (*models.ServiceAreaParameters, error) {
	if err := c.probeService(ctx, "load service area parameters"); err != nil {
		return nil, err
	}
	return &models.ServiceAreaParameters{
		Profile:        c.profile,
		DefaultCutoffs: []float64{5},
		PolygonDetail:  models.PolygonDetailStandard,
		LoadedAt:       time.Now(),
	}, nil
}

func (c *OSRMGateway) probeService(ctx context.Context, op string) error {
	var resp osrmNearestResponse
	path := fmt.Sprintf("/nearest/v1/%s/%s", c.profile, formatCoordinates([]models.Coordinates{c.probe}))
	if err := c.get(ctx, op, path, nil, &resp); err != nil {
		return err
	}
	if len(resp.Waypoints) == 0 {
		return &ErrSolveFailed{Operation: op, Reason: "service returned no waypoint for probe"}
	}
	c.logger.Info("[OSRM] Service reachable",
		zap.String("operation", op),
		zap.String("profile", c.profile),
		zap.Float64("snap_distance", resp.Waypoints[0].Distance))
	return nil
}

func (c *OSRMGateway) SolveRoute(ctx context.Context, req *models.RouteRequest) (*models.RouteResult, error) {
	const op = "solve route"

	if len(req.Stops) < 2 {
		return nil, &ErrSolveFailed{Operation: op, Reason: "at least two stops are required"}
	}

	key, err := CacheKey("route", req)
	if err != nil {
		return nil, err
	}
	var cached models.RouteResult
	if c.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	stops := req.Stops
	if req.Options.FindBestSequence && len(stops) > 2 {
		stops, err = c.orderStops(ctx, req.Profile, stops, req.Options)
		if err != nil {
			return nil, err
		}
	}

	c.logger.Info("[OSRM] Route request",
		zap.Int("stops", len(stops)),
		zap.Int("barriers", len(req.Barriers)),
		zap.Bool("reordered", req.Options.FindBestSequence))

	query := url.Values{}
	query.Set("steps", "true")
	query.Set("geometries", "geojson")
	query.Set("overview", "full")
	query.Set("alternatives", "true")

	var resp osrmRouteResponse
	path := fmt.Sprintf("/route/v1/%s/%s", c.profileOr(req.Profile), formatStops(stops))
	if err := c.get(ctx, op, path, query, &resp); err != nil {
		return nil, err
	}

	for i, r := range resp.Routes {
		ls, ok := routeLine(r)
		if !ok {
			continue
		}
		if crossesBarrier(ls, req.Barriers) {
			c.logger.Debug("[OSRM] Alternative crosses a barrier", zap.Int("alternative", i))
			continue
		}

		route := models.Route{
			Geometry:       ls,
			Stops:          append([]models.Stop{}, stops...),
			DistanceMeters: r.Distance,
			DurationSecs:   r.Duration,
		}
		if req.ReturnDirections {
			route.Directions = buildDirections(r.Legs, stops)
		}
		if !req.ReturnStops {
			route.Stops = nil
		}

		result := &models.RouteResult{Routes: []models.Route{route}}
		c.toCache(ctx, key, result)

		c.logger.Info("[OSRM] Route solved",
			zap.Int("alternative", i),
			zap.Float64("distance", r.Distance),
			zap.Float64("duration", r.Duration),
			zap.Int("maneuvers", len(route.Directions)))
		return result, nil
	}

	if len(resp.Routes) == 0 {
		return nil, &ErrSolveFailed{Operation: op, Reason: "no route found"}
	}
	return nil, &ErrSolveFailed{Operation: op, Reason: "no route avoids the barriers"}
}

// orderStops asks the trip service for the best visiting order.
// OSRM only accepts a non-roundtrip when both ends are fixed.
func (c *OSRMGateway) orderStops(ctx context.Context, profile string, stops []models.Stop, opts models.RouteOptions) ([]models.Stop, error) {
	const op = "find best sequence"

	query := url.Values{}
	if opts.PreserveFirstStop {
		query.Set("source", "first")
	}
	if opts.PreserveLastStop {
		query.Set("destination", "last")
	}
	if opts.PreserveFirstStop && opts.PreserveLastStop {
		query.Set("roundtrip", "false")
	}

	var resp osrmTripResponse
	path := fmt.Sprintf("/trip/v1/%s/%s", c.profileOr(profile), formatStops(stops))
	if err := c.get(ctx, op, path, query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Waypoints) != len(stops) {
		return nil, &ErrSolveFailed{
			Operation: op,
			Reason:    fmt.Sprintf("expected %d waypoints, got %d", len(stops), len(resp.Waypoints)),
		}
	}

	type visit struct {
		order int
		stop  models.Stop
	}
	visits := make([]visit, len(stops))
	for i, wp := range resp.Waypoints {
		visits[i] = visit{order: wp.WaypointIndex, stop: stops[i]}
	}
	sort.SliceStable(visits, func(i, j int) bool { return visits[i].order < visits[j].order })

	ordered := make([]models.Stop, len(visits))
	for i, v := range visits {
		ordered[i] = v.stop
	}

	c.logger.Debug("[OSRM] Stops reordered", zap.Int("stops", len(ordered)))
	return ordered, nil
}

// get performs a GET against the OSRM service and decodes the JSON body into out
func (c *OSRMGateway) get(ctx context.Context, op, path string, query url.Values, out osrmResponse) error {
	queryURL := c.baseURL + path
	if len(query) > 0 {
		queryURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		c.logger.Error("[OSRM] Failed to create request", zap.String("operation", op), zap.Error(err))
		return &ErrSolveFailed{Operation: op, Reason: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("[OSRM] API request failed", zap.String("operation", op), zap.Error(err))
		return &ErrSolveFailed{Operation: op, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ErrSolveFailed{Operation: op, Reason: err.Error()}
	}

	if err := json.Unmarshal(body, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			c.logger.Error("[OSRM] API error", zap.String("operation", op), zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
			return &ErrSolveFailed{Operation: op, Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))}
		}
		c.logger.Error("[OSRM] Failed to decode response", zap.String("operation", op), zap.Error(err))
		return &ErrSolveFailed{Operation: op, Reason: err.Error()}
	}

	code, message := out.status()
	if code != "Ok" {
		c.logger.Error("[OSRM] Returned error code",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode),
			zap.String("code", code),
			zap.String("message", message))
		reason := fmt.Sprintf("OSRM error: %s", code)
		if message != "" {
			reason = fmt.Sprintf("OSRM error: %s: %s", code, message)
		}
		return &ErrSolveFailed{Operation: op, Reason: reason}
	}
	return nil
}

func (c *OSRMGateway) fromCache(ctx context.Context, key string, out any) bool {
	if c.cache == nil {
		return false
	}
	data, err := c.cache.Get(ctx, key)
	if err != nil || data == nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("[OSRM] Discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	c.logger.Debug("[OSRM] Cache hit", zap.String("key", key))
	return true
}

func (c *OSRMGateway) toCache(ctx context.Context, key string, v any) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data); err != nil {
		c.logger.Warn("[OSRM] Failed to cache result", zap.String("key", key), zap.Error(err))
	}
}

func (c *OSRMGateway) profileOr(profile string) string {
	if profile == "" {
		return c.profile
	}
	return profile
}

func routeLine(r osrmRoute) (orb.LineString, bool) {
	if r.Geometry == nil {
		return nil, false
	}
	ls, ok := r.Geometry.Geometry().(orb.LineString)
	return ls, ok && len(ls) >= 2
}

func crossesBarrier(ls orb.LineString, barriers []models.BarrierRegion) bool {
	for _, b := range barriers {
		if geometry.LineEntersPolygon(ls, b.Polygon) {
			return true
		}
	}
	return false
}

func formatStops(stops []models.Stop) string {
	coords := make([]models.Coordinates, len(stops))
	for i, s := range stops {
		coords[i] = s.Position
	}
	return formatCoordinates(coords)
}

func formatCoordinates(points []models.Coordinates) string {
	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat)
	}
	return strings.Join(coords, ";")
}
