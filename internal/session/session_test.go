package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"barrier-router/internal/metrics"
	"barrier-router/internal/models"
	"barrier-router/internal/testutil"
)

type harness struct {
	gateway   *testutil.MockGateway
	presenter *testutil.RecordingPresenter[Mutation]
	history   *testutil.MockHistory
	reporter  *testutil.MockReporter
	metrics   *metrics.Metrics
	cfg       Config
}

func newHarness() *harness {
	return &harness{
		gateway:   testutil.NewMockGateway(),
		presenter: &testutil.RecordingPresenter[Mutation]{},
		history:   &testutil.MockHistory{},
		reporter:  &testutil.MockReporter{},
		metrics:   metrics.New(),
		cfg:       DefaultConfig(),
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Gateway:   h.gateway,
		Presenter: h.presenter,
		Recorder:  h.history,
		Metrics:   h.metrics,
		Reporter:  h.reporter,
	}
}

func (h *harness) mutations(kind MutationKind) []Mutation {
	var out []Mutation
	for _, m := range h.presenter.Items() {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func (h *harness) startRoute(t *testing.T) *RouteSession {
	t.Helper()
	s := NewRouteSession("route-1", VariantStandard, h.cfg, h.deps())
	t.Cleanup(s.Close)
	require.NoError(t, s.Start())
	waitForParameters(t, s)
	return s
}

func (h *harness) startServiceArea(t *testing.T) *ServiceAreaSession {
	t.Helper()
	s := NewServiceAreaSession("sa-1", h.cfg, h.deps())
	t.Cleanup(s.Close)
	require.NoError(t, s.Start())
	waitForParameters(t, s)
	return s
}

func waitForParameters(t *testing.T, s Session) {
	t.Helper()
	require.Eventually(t, func() bool {
		snap, err := s.Snapshot()
		return err == nil && snap.ParametersLoaded
	}, 2*time.Second, 5*time.Millisecond)
}

func awaitOutcome(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o, ok := <-ch:
		require.True(t, ok, "outcome channel closed without a value")
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for solve outcome")
	}
	return Outcome{}
}

func tapAll(t *testing.T, s Session, coords ...models.Coordinates) {
	t.Helper()
	for _, c := range coords {
		_, err := s.Tap(c)
		require.NoError(t, err)
	}
}

func setMode(t *testing.T, s Session, m Mode) {
	t.Helper()
	_, err := s.SetMode(m)
	require.NoError(t, err)
}
