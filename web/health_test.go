package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netresearch/occi-now/test/testutil"
)

func TestHealthCheckerRun(t *testing.T) {
	t.Parallel()

	var probes atomic.Int32
	hc := NewHealthChecker(func(context.Context) error {
		probes.Add(1)
		return nil
	}, "1.0.0")
	hc.checkInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hc.Run(ctx)
		close(done)
	}()

	testutil.Eventually(t, func() bool { return probes.Load() >= 2 },
		testutil.WithTimeout(2*time.Second), testutil.WithMessage("backend was not probed periodically"))
	cancel()
	assert.True(t, testutil.WaitForClose[struct{}](t, done, time.Second))

	health := hc.GetHealth()
	assert.Equal(t, "1.0.0", health.Version)
	assert.Positive(t, health.Uptime)
	require.Contains(t, health.Checks, "backend")
	assert.Equal(t, HealthStatusHealthy, health.Checks["backend"].Status)
	assert.Contains(t, health.Checks, "system")
	assert.NotEmpty(t, health.System.GoVersion)
}

func TestHealthCheckerBackendDown(t *testing.T) {
	t.Parallel()

	hc := NewHealthChecker(func(context.Context) error {
		return errors.New("connection refused")
	}, "dev")
	hc.CheckNow(context.Background())

	health := hc.GetHealth()
	assert.Equal(t, HealthStatusUnhealthy, health.Status)
	assert.Equal(t, "Backend unreachable: connection refused", health.Checks["backend"].Message)

	w := httptest.NewRecorder()
	hc.ReadinessHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	hc.HealthHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, HealthStatusUnhealthy, body.Status)
}

func TestHealthCheckerWithoutProbe(t *testing.T) {
	t.Parallel()

	hc := NewHealthChecker(nil, "dev")
	hc.CheckNow(context.Background())
	assert.Equal(t, "Backend not configured", hc.GetHealth().Checks["backend"].Message)
}

func TestHealthCheckerProbeTimeout(t *testing.T) {
	t.Parallel()

	hc := NewHealthChecker(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, "dev")
	hc.probeTimeout = 10 * time.Millisecond
	hc.CheckNow(context.Background())

	assert.Equal(t, HealthStatusUnhealthy, hc.GetHealth().Checks["backend"].Status)
}

func TestMemoryCheckNeverUnhealthy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HealthStatusHealthy, memoryCheck(10, 100).Status)
	assert.Equal(t, HealthStatusHealthy, memoryCheck(0, 0).Status)

	high := memoryCheck(99, 100)
	assert.Equal(t, HealthStatusDegraded, high.Status)
	assert.Equal(t, "system", high.Name)

	hc := NewHealthChecker(func(context.Context) error { return nil }, "dev")
	hc.store(high)
	hc.store(HealthCheck{Name: "backend", Status: HealthStatusHealthy})

	w := httptest.NewRecorder()
	hc.ReadinessHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, HealthStatusDegraded, hc.GetHealth().Status)
}

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	hc := NewHealthChecker(nil, "dev")
	w := httptest.NewRecorder()
	hc.LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestServerHealthRoutes(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	hc := NewHealthChecker(func(context.Context) error { return nil }, "dev")
	hc.CheckNow(context.Background())
	srv := NewServer(Options{Networks: s.networks, Registry: s.registry, Health: hc})

	for _, path := range []string{"/health", "/healthz", "/ready", "/live"} {
		w := httptest.NewRecorder()
		srv.HTTPServer().Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
