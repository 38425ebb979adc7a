package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"barrier-router/internal/config"
	"barrier-router/internal/handlers"
	"barrier-router/internal/metrics"
	"barrier-router/internal/models"
	"barrier-router/internal/report"
	"barrier-router/internal/session"
	"barrier-router/internal/solver"
	"barrier-router/internal/sqlite"
	"barrier-router/web"
)

// Version is reported by the health endpoint and tagged on Sentry events
const Version = "1.0.0"

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	sessions   *session.Store
	store      *sqlite.Store
	cache      *solver.RedisCache
	listener   net.Listener
	addr       string
	logger     *zap.Logger
}

// Config holds server configuration
type Config struct {
	App    *config.Config
	Logger *zap.Logger

	// Gateway replaces the OSRM gateway when set
	Gateway solver.Gateway
}

// New creates and initializes a new server (does not start it)
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("missing application config")
	}
	app := cfg.App
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{addr: app.Server.Addr, logger: logger}

	gateway := cfg.Gateway
	if gateway == nil {
		gateway = solver.NewOSRMGateway(solver.Config{
			BaseURL:           app.Solver.BaseURL,
			Profile:           app.Solver.Profile,
			RequestTimeout:    app.Solver.RequestTimeout,
			ProbePoint:        models.Coordinates{Lat: app.Solver.ProbeLat, Lng: app.Solver.ProbeLng},
			IsochroneSpeedKmh: app.Solver.IsochroneSpeedKmh,
		}, s.resultCache(app.Cache), logger)
	}

	logger.Info("[SERVER] Initializing history store")
	store, err := sqlite.New(app.History.DBPath, logger)
	if err != nil {
		s.closeCache()
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}
	s.store = store

	templates, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	m := metrics.New()
	feed := handlers.NewEventFeed(handlers.DefaultFeedCapacity, nil)
	deps := session.Deps{
		Gateway:   gateway,
		Presenter: feed,
		Recorder:  store.History(),
		Metrics:   m,
		Reporter:  report.NewReporter(nil),
		Logger:    logger,
	}
	s.sessions = session.NewStore(session.NewFactory(sessionConfig(app), deps), m, logger)

	handler := handlers.New(s.sessions, feed, logger)
	handler.History = store.History()
	handler.Health = store
	handler.Templates = templates
	handler.Version = Version
	s.handler = handler

	router, err := setupRoutes(handler, m, web.Static, logger)
	if err != nil {
		s.close()
		return nil, err
	}

	s.httpServer = &http.Server{
		Addr:         app.Server.Addr,
		Handler:      loggingMiddleware(logger)(corsMiddleware(sentryMiddleware(router))),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

func sessionConfig(app *config.Config) session.Config {
	return session.Config{
		BarrierRadius:         app.Route.BarrierRadiusMeters,
		ExtendedBarrierRadius: app.Route.ExtendedBarrierRadiusMeters,
		CircleRadius:          app.Route.CircleRadius,
		CircleViewportScale:   app.Route.CircleViewportScale,
		DefaultCutoffs:        app.ServiceArea.DefaultCutoffs,
		AddedCutoffs:          app.ServiceArea.AddedCutoffs,
		PolygonDetail:         models.PolygonDetail(app.ServiceArea.PolygonDetail),
		SolveTimeout:          app.Solver.SolveTimeout,
	}
}

// resultCache connects to Redis when an address is configured, falling back
// to an in-process cache when it is not reachable
func (s *Server) resultCache(cfg config.CacheConfig) solver.ResultCache {
	if cfg.RedisAddr == "" {
		return solver.NewMemoryCache(cfg.TTL)
	}
	cache, err := solver.NewRedisCache(context.Background(), cfg.RedisAddr, cfg.TTL, s.logger)
	if err != nil {
		s.logger.Warn("[SERVER] Redis unavailable, using in-memory cache", zap.Error(err))
		return solver.NewMemoryCache(cfg.TTL)
	}
	s.cache = cache
	return cache
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	s.logger.Info("[SERVER] Starting server", zap.String("addr", actualAddr))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("[SERVER] Server error", zap.Error(err))
		}
	}()

	return actualAddr, nil
}

// Shutdown stops accepting requests, closes every session and releases
// the history store and cache. Resources are released even when ctx
// expires before in-flight requests drain.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.Warn("[SERVER] HTTP shutdown incomplete", zap.Error(err))
	}
	return errors.Join(err, s.close())
}

func (s *Server) close() error {
	if s.sessions != nil {
		s.sessions.CloseAll()
	}
	s.closeCache()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *Server) closeCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Close(); err != nil {
		s.logger.Warn("[SERVER] Failed to close redis", zap.Error(err))
	}
}

// setupRoutes configures all HTTP routes
func setupRoutes(h *handlers.Handler, m *metrics.Metrics, staticFS fs.FS, logger *zap.Logger) (*httprouter.Router, error) {
	router := httprouter.New()

	staticSubFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-filesystem: %w", err)
	}
	router.ServeFiles("/static/*filepath", http.FS(staticSubFS))

	router.HandlerFunc(http.MethodGet, "/", h.HandleIndexPage)
	router.HandlerFunc(http.MethodGet, "/api/v1/health", h.HandleHealthCheck)
	router.HandlerFunc(http.MethodGet, "/api/v1/history", h.HandleListHistory)
	router.HandlerFunc(http.MethodPost, "/api/v1/open-url", openURLHandler(logger))
	router.Handler(http.MethodGet, "/metrics", m.Handler())

	router.HandlerFunc(http.MethodPost, "/api/v1/sessions", h.HandleCreateSession)
	router.HandlerFunc(http.MethodGet, "/api/v1/sessions/:id", h.HandleGetSession)
	router.HandlerFunc(http.MethodDelete, "/api/v1/sessions/:id", h.HandleDeleteSession)
	router.HandlerFunc(http.MethodPut, "/api/v1/sessions/:id/mode", h.HandleSetMode)
	router.HandlerFunc(http.MethodPut, "/api/v1/sessions/:id/options", h.HandleSetOptions)
	router.HandlerFunc(http.MethodPost, "/api/v1/sessions/:id/taps", h.HandleTap)
	router.HandlerFunc(http.MethodPost, "/api/v1/sessions/:id/solve", h.HandleSolve)
	router.HandlerFunc(http.MethodPost, "/api/v1/sessions/:id/reset", h.HandleReset)
	router.HandlerFunc(http.MethodGet, "/api/v1/sessions/:id/directions", h.HandleDirections)
	router.HandlerFunc(http.MethodGet, "/api/v1/sessions/:id/overlays", h.HandleOverlays)
	router.HandlerFunc(http.MethodGet, "/api/v1/sessions/:id/events", h.HandleEvents)

	return router, nil
}
