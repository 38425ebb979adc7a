package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100.0, cfg.Route.BarrierRadiusMeters)
	assert.Equal(t, 500.0, cfg.Route.ExtendedBarrierRadiusMeters)
	assert.Equal(t, 10.0, cfg.Route.CircleRadius)
	assert.Equal(t, 2000.0, cfg.Route.CircleViewportScale)
	assert.Equal(t, []float64{5}, cfg.ServiceArea.DefaultCutoffs)
	assert.Equal(t, []float64{2}, cfg.ServiceArea.AddedCutoffs)
	assert.Equal(t, "high", cfg.ServiceArea.PolygonDetail)
	assert.Equal(t, "https://router.project-osrm.org", cfg.Solver.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Solver.SolveTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.NotEmpty(t, cfg.History.DBPath)
	assert.Equal(t, WindowConfig{Title: "Barrier Router", Width: 1280, Height: 800, MinWidth: 800, MinHeight: 600}, cfg.Window)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
route:
  barrier_radius_meters: 250
service_area:
  added_cutoffs: [2, 10]
solver:
  solve_timeout: 5s
window:
  title: Barrier Router (staging)
  height: 900
`), 0o644))

	t.Setenv("BARRIER_ROUTER_SOLVER_BASE_URL", "http://localhost:5000")
	t.Setenv("BARRIER_ROUTER_CACHE_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250.0, cfg.Route.BarrierRadiusMeters)
	assert.Equal(t, []float64{2, 10}, cfg.ServiceArea.AddedCutoffs)
	assert.Equal(t, 5*time.Second, cfg.Solver.SolveTimeout)
	assert.Equal(t, "http://localhost:5000", cfg.Solver.BaseURL)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "Barrier Router (staging)", cfg.Window.Title)
	assert.Equal(t, 900, cfg.Window.Height)
	assert.Equal(t, 1280, cfg.Window.Width)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative radius", "route:\n  barrier_radius_meters: -1\n"},
		{"unknown detail", "service_area:\n  polygon_detail: ultra\n"},
		{"bad base url", "solver:\n  base_url: not a url\n"},
		{"empty cutoffs", "service_area:\n  default_cutoffs: []\n"},
		{"unknown log level", "log:\n  level: chatty\n"},
		{"window below minimum", "window:\n  width: 640\n"},
		{"empty window title", "window:\n  title: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}
