package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"barrier-router/internal/config"
	"barrier-router/internal/logger"
	"barrier-router/internal/report"
	"barrier-router/internal/server"
)

// App struct holds the Wails application state
type App struct {
	ctx    context.Context
	server *server.Server
	logger *zap.Logger
	window config.WindowConfig
	url    string
}

// NewApp creates a new App application struct
func NewApp() *App {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if err := report.Setup(report.Options{DSN: cfg.Sentry.DSN, Environment: cfg.Sentry.Env, Release: server.Version}); err != nil {
		l.Warn("[APP] Sentry disabled", zap.Error(err))
	}

	// The window always talks to a private server on a random port
	cfg.Server.Addr = "127.0.0.1:0"
	srv, err := server.New(server.Config{App: cfg, Logger: l})
	if err != nil {
		l.Fatal("[APP] Failed to create server", zap.Error(err))
	}

	addr, err := srv.Start()
	if err != nil {
		l.Fatal("[APP] Failed to start server", zap.Error(err))
	}

	app := &App{server: srv, logger: l, window: cfg.Window, url: fmt.Sprintf("http://%s", addr)}
	l.Info("[APP] Internal HTTP server running", zap.String("url", app.url))
	return app
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	// Navigate the WebView to the internal server immediately
	go func() {
		runtime.WindowExecJS(ctx, fmt.Sprintf(`window.location.href = "%s"`, a.url))
	}()
}

// shutdown is called when the app closes
func (a *App) shutdown(ctx context.Context) {
	defer report.Flush()
	defer a.logger.Sync()

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("[APP] Error shutting down server", zap.Error(err))
		}
	}
}
