package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barrier-router/internal/config"
	"barrier-router/internal/handlers"
	"barrier-router/internal/session"
	"barrier-router/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Addr: "127.0.0.1:0"},
		Log:    config.LogConfig{Level: "info"},
		Route: config.RouteConfig{
			BarrierRadiusMeters:         100,
			ExtendedBarrierRadiusMeters: 500,
			CircleRadius:                10,
			CircleViewportScale:         2000,
		},
		ServiceArea: config.ServiceAreaConfig{
			DefaultCutoffs: []float64{5},
			AddedCutoffs:   []float64{2},
			PolygonDetail:  "high",
		},
		Solver: config.SolverConfig{
			BaseURL:        "http://127.0.0.1:1",
			Profile:        "driving",
			RequestTimeout: time.Second,
			SolveTimeout:   5 * time.Second,
		},
		History: config.HistoryConfig{DBPath: filepath.Join(t.TempDir(), "history.db")},
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := New(Config{App: testConfig(t), Gateway: testutil.NewMockGateway()})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.close()
	})
	return srv, ts
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNewFallsBackToMemoryCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.RedisAddr = "127.0.0.1:1"

	srv, err := New(Config{App: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { srv.close() })

	assert.Nil(t, srv.cache)
}

func TestSessionRoutes(t *testing.T) {
	_, ts := newTestServer(t)
	base := ts.URL + "/api/v1/sessions"

	var created handlers.SessionResponse
	resp := doJSON(t, http.MethodPost, base, map[string]string{"kind": "route"}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := created.ID

	require.Eventually(t, func() bool {
		var snap handlers.SessionResponse
		doJSON(t, http.MethodGet, base+"/"+id, nil, &snap)
		return snap.ParametersLoaded
	}, 2*time.Second, 10*time.Millisecond)

	resp = doJSON(t, http.MethodPut, base+"/"+id+"/mode", map[string]string{"mode": "adding_stops"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, lng := range []float64{-118.25, -118.24, -118.23} {
		resp = doJSON(t, http.MethodPost, base+"/"+id+"/taps", map[string]float64{"lat": 34.05, "lng": lng}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var outcome handlers.OutcomeResponse
	resp = doJSON(t, http.MethodPost, base+"/"+id+"/solve?wait=true", nil, &outcome)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, outcome.Succeeded)
	assert.Len(t, outcome.Route.Stops, 3)

	resp = doJSON(t, http.MethodGet, base+"/"+id+"/directions", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, base+"/"+id+"/overlays", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, base+"/"+id+"/events", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var history handlers.HistoryResponse
	doJSON(t, http.MethodGet, ts.URL+"/api/v1/history?session_id="+id, nil, &history)
	assert.Equal(t, 1, history.Total)

	resp = doJSON(t, http.MethodPost, base+"/"+id+"/reset", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, base+"/"+id, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, base+"/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, http.MethodPatch, ts.URL+"/api/v1/sessions", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	doJSON(t, http.MethodPost, ts.URL+"/api/v1/sessions", map[string]string{"kind": "service_area"}, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `barrier_router_live_sessions{kind="service_area"} 1`)
}

func TestIndexAndStatic(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "<title>Barrier Router</title>")

	resp, err = http.Get(ts.URL + "/static/js/app.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name   string
		origin string
		allow  string
	}{
		{"localhost", "http://localhost:34115", "http://localhost:34115"},
		{"wails", "wails://wails", "wails://wails"},
		{"foreign", "https://evil.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/sessions", nil)
			require.NoError(t, err)
			req.Header.Set("Origin", tt.origin)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.allow, resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestOpenURLRejectsNonHTTP(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/open-url", map[string]string{"url": "file:///etc/passwd"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartAndShutdown(t *testing.T) {
	srv, err := New(Config{App: testConfig(t), Gateway: testutil.NewMockGateway()})
	require.NoError(t, err)

	addr, err := srv.Start()
	require.NoError(t, err)
	assert.False(t, strings.HasSuffix(addr, ":0"))

	resp, err := http.Get("http://" + addr + "/api/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = srv.sessions.Create("route", session.VariantStandard)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Zero(t, srv.sessions.Len())
}

func TestShutdownReleasesResourcesWhenContextExpires(t *testing.T) {
	srv, err := New(Config{App: testConfig(t), Gateway: testutil.NewMockGateway()})
	require.NoError(t, err)

	accepted := make(chan struct{}, 1)
	srv.httpServer.ConnState = func(c net.Conn, state http.ConnState) {
		if state == http.StateNew {
			select {
			case accepted <- struct{}{}:
			default:
			}
		}
	}

	addr, err := srv.Start()
	require.NoError(t, err)

	// A connection that never sends a request keeps the server from going idle
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	select {
	case <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("connection was not accepted")
	}

	_, err = srv.sessions.Create("route", session.VariantStandard)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = srv.Shutdown(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, srv.sessions.Len(), "sessions closed despite the expired context")
}
