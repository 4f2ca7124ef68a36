// Package metrics collects request and backend counters in memory and
// exposes them in the Prometheus text format.
package metrics

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Metric names.
const (
	HTTPRequestsTotal   = "occinow_http_requests_total"
	HTTPRequestDuration = "occinow_http_request_duration_seconds"
	BackendCallsTotal   = "occinow_backend_calls_total"
	BackendErrorsTotal  = "occinow_backend_errors_total"
	BackendCallDuration = "occinow_backend_call_duration_seconds"
	Up                  = "occinow_up"
)

// MetricsCollector handles Prometheus-style metrics
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
}

// Metric is a named metric family with one series per label set.
type Metric struct {
	Name    string
	Type    string // counter, gauge, histogram
	Help    string
	Buckets []float64
	series  map[string]*series
}

type series struct {
	labels string
	value  float64
	hist   *Histogram
}

// Histogram for tracking distributions
type Histogram struct {
	Count  int64
	Sum    float64
	Counts []int64 // per bucket, cumulative
}

// Labels attach dimensions to a series.
type Labels map[string]string

func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Quote(l[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{metrics: make(map[string]*Metric)}
}

func (mc *MetricsCollector) register(name, typ, help string, buckets []float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	buckets = slices.Clone(buckets)
	slices.Sort(buckets)
	mc.metrics[name] = &Metric{
		Name:    name,
		Type:    typ,
		Help:    help,
		Buckets: buckets,
		series:  make(map[string]*series),
	}
}

// RegisterCounter registers a new counter metric
func (mc *MetricsCollector) RegisterCounter(name, help string) {
	mc.register(name, "counter", help, nil)
}

// RegisterGauge registers a new gauge metric
func (mc *MetricsCollector) RegisterGauge(name, help string) {
	mc.register(name, "gauge", help, nil)
}

// RegisterHistogram registers a new histogram metric
func (mc *MetricsCollector) RegisterHistogram(name, help string, buckets []float64) {
	mc.register(name, "histogram", help, buckets)
}

// seriesFor must be called with mu held.
func (mc *MetricsCollector) seriesFor(name, typ string, labels Labels) *series {
	metric, ok := mc.metrics[name]
	if !ok || metric.Type != typ {
		return nil
	}
	key := labels.String()
	s, ok := metric.series[key]
	if !ok {
		s = &series{labels: key}
		if typ == "histogram" {
			s.hist = &Histogram{Counts: make([]int64, len(metric.Buckets))}
		}
		metric.series[key] = s
	}
	return s
}

// IncrementCounter increments a counter metric. Unregistered names are
// ignored.
func (mc *MetricsCollector) IncrementCounter(name string, labels Labels, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if s := mc.seriesFor(name, "counter", labels); s != nil {
		s.value += value
	}
}

// SetGauge sets a gauge metric value
func (mc *MetricsCollector) SetGauge(name string, labels Labels, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if s := mc.seriesFor(name, "gauge", labels); s != nil {
		s.value = value
	}
}

// ObserveHistogram records a value in a histogram
func (mc *MetricsCollector) ObserveHistogram(name string, labels Labels, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	s := mc.seriesFor(name, "histogram", labels)
	if s == nil {
		return
	}
	s.hist.Count++
	s.hist.Sum += value
	for i, bound := range mc.metrics[name].Buckets {
		if value <= bound {
			s.hist.Counts[i]++
		}
	}
}

// Value returns the current value of a counter or gauge series.
func (mc *MetricsCollector) Value(name string, labels Labels) float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	metric, ok := mc.metrics[name]
	if !ok {
		return 0
	}
	if s, ok := metric.series[labels.String()]; ok {
		return s.value
	}
	return 0
}

// HistogramCount returns how many values a histogram series observed.
func (mc *MetricsCollector) HistogramCount(name string, labels Labels) int64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	metric, ok := mc.metrics[name]
	if !ok {
		return 0
	}
	if s, ok := metric.series[labels.String()]; ok && s.hist != nil {
		return s.hist.Count
	}
	return 0
}

// Export formats metrics in Prometheus text format, sorted by name and
// label set.
func (mc *MetricsCollector) Export() string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	names := make([]string, 0, len(mc.metrics))
	for name := range mc.metrics {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		metric := mc.metrics[name]
		fmt.Fprintf(&b, "# HELP %s %s\n", metric.Name, metric.Help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", metric.Name, metric.Type)

		keys := make([]string, 0, len(metric.series))
		for key := range metric.series {
			keys = append(keys, key)
		}
		slices.Sort(keys)

		for _, key := range keys {
			s := metric.series[key]
			if s.hist == nil {
				fmt.Fprintf(&b, "%s%s %g\n", metric.Name, s.labels, s.value)
				continue
			}
			for i, bound := range metric.Buckets {
				fmt.Fprintf(&b, "%s_bucket%s %d\n", metric.Name, withLE(s.labels, strconv.FormatFloat(bound, 'g', -1, 64)), s.hist.Counts[i])
			}
			fmt.Fprintf(&b, "%s_bucket%s %d\n", metric.Name, withLE(s.labels, "+Inf"), s.hist.Count)
			fmt.Fprintf(&b, "%s_sum%s %g\n", metric.Name, s.labels, s.hist.Sum)
			fmt.Fprintf(&b, "%s_count%s %d\n", metric.Name, s.labels, s.hist.Count)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func withLE(labels, le string) string {
	pair := `le="` + le + `"`
	if labels == "" {
		return "{" + pair + "}"
	}
	return strings.TrimSuffix(labels, "}") + "," + pair + "}"
}

// Handler returns an HTTP handler for the metrics endpoint
func (mc *MetricsCollector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, mc.Export())
	}
}

// InitDefaultMetrics registers the metrics recorded by the server.
func (mc *MetricsCollector) InitDefaultMetrics() {
	mc.RegisterGauge(Up, "occi-now service status (1 = up, 0 = down)")

	mc.RegisterCounter(HTTPRequestsTotal, "Total number of HTTP requests")
	mc.RegisterHistogram(HTTPRequestDuration, "HTTP request duration in seconds",
		[]float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5})

	mc.RegisterCounter(BackendCallsTotal, "Total network backend calls")
	mc.RegisterCounter(BackendErrorsTotal, "Total failed network backend calls")
	mc.RegisterHistogram(BackendCallDuration, "Network backend call duration in seconds",
		[]float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30})

	mc.SetGauge(Up, nil, 1)
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMetrics middleware for tracking HTTP requests
func HTTPMetrics(mc *MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			mc.IncrementCounter(HTTPRequestsTotal, Labels{
				"method": r.Method,
				"code":   strconv.Itoa(rec.status),
			}, 1)
			mc.ObserveHistogram(HTTPRequestDuration, Labels{"method": r.Method}, time.Since(start).Seconds())
		})
	}
}
