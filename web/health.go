package web

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single health check
type HealthCheck struct {
	Name        string        `json:"name"`
	Status      HealthStatus  `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    float64                `json:"uptime_seconds"`
	Version   string                 `json:"version"`
	Checks    map[string]HealthCheck `json:"checks"`
	System    SystemInfo             `json:"system"`
}

// SystemInfo contains system-level information
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"goroutines"`
	NumCPU       int    `json:"cpus"`
	MemoryAlloc  uint64 `json:"memory_alloc_bytes"`
	MemoryTotal  uint64 `json:"memory_total_bytes"`
	GCRuns       uint32 `json:"gc_runs"`
}

// BackendProbe reports whether the network backend can be reached.
type BackendProbe func(ctx context.Context) error

// HealthChecker performs health checks
type HealthChecker struct {
	startTime     time.Time
	probe         BackendProbe
	version       string
	checks        map[string]HealthCheck
	mu            sync.RWMutex
	checkInterval time.Duration
	probeTimeout  time.Duration
}

// NewHealthChecker creates a health checker. Checks only run once Run or
// CheckNow is called.
func NewHealthChecker(probe BackendProbe, version string) *HealthChecker {
	return &HealthChecker{
		startTime:     time.Now(),
		probe:         probe,
		version:       version,
		checks:        make(map[string]HealthCheck),
		checkInterval: 30 * time.Second,
		probeTimeout:  10 * time.Second,
	}
}

// Run performs all checks immediately and then periodically until ctx is
// done.
func (hc *HealthChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	hc.CheckNow(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.CheckNow(ctx)
		}
	}
}

// CheckNow executes all health checks
func (hc *HealthChecker) CheckNow(ctx context.Context) {
	hc.checkBackend(ctx)
	hc.checkSystemResources()
}

// checkBackend verifies the network backend answers a listing.
func (hc *HealthChecker) checkBackend(ctx context.Context) {
	start := time.Now()
	check := HealthCheck{
		Name:        "backend",
		LastChecked: start,
	}

	if hc.probe == nil {
		check.Status = HealthStatusUnhealthy
		check.Message = "Backend not configured"
	} else {
		ctx, cancel := context.WithTimeout(ctx, hc.probeTimeout)
		err := hc.probe(ctx)
		cancel()
		if err != nil {
			check.Status = HealthStatusUnhealthy
			check.Message = "Backend unreachable: " + err.Error()
		} else {
			check.Status = HealthStatusHealthy
			check.Message = "Backend reachable"
		}
	}

	check.Duration = time.Since(start)
	hc.store(check)
}

// checkSystemResources records heap usage. It is informational: at worst it
// reports degraded, so readiness depends on the backend alone.
func (hc *HealthChecker) checkSystemResources() {
	start := time.Now()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	check := memoryCheck(m.Alloc, m.Sys)
	check.LastChecked = start
	check.Duration = time.Since(start)
	hc.store(check)
}

func memoryCheck(alloc, sys uint64) HealthCheck {
	check := HealthCheck{Name: "system", Status: HealthStatusHealthy, Message: "System resources normal"}
	if sys > 0 && float64(alloc)/float64(sys) > 0.9 {
		check.Status = HealthStatusDegraded
		check.Message = "Memory usage high"
	}
	return check
}

func (hc *HealthChecker) store(check HealthCheck) {
	hc.mu.Lock()
	hc.checks[check.Name] = check
	hc.mu.Unlock()
}

// GetHealth returns the current health status
func (hc *HealthChecker) GetHealth() HealthResponse {
	hc.mu.RLock()
	checks := maps.Clone(hc.checks)
	hc.mu.RUnlock()

	status := HealthStatusHealthy
	for _, check := range checks {
		if check.Status == HealthStatusUnhealthy {
			status = HealthStatusUnhealthy
			break
		} else if check.Status == HealthStatusDegraded {
			status = HealthStatusDegraded
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Uptime:    time.Since(hc.startTime).Seconds(),
		Version:   hc.version,
		Checks:    checks,
		System: SystemInfo{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
			MemoryAlloc:  m.Alloc,
			MemoryTotal:  m.Sys,
			GCRuns:       m.NumGC,
		},
	}
}

// LivenessHandler returns a simple liveness check
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler answers 503 while any check is unhealthy.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		health := hc.GetHealth()

		statusCode := http.StatusOK
		if health.Status == HealthStatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, health)
	}
}

// HealthHandler returns detailed health information, always with 200.
func (hc *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, hc.GetHealth())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
