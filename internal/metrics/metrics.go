// Package metrics provides Prometheus metrics for monitoring smoothscroll.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scroll outcomes used as the "outcome" label.
const (
	OutcomeCompleted   = "completed"
	OutcomeInterrupted = "interrupted"
	OutcomeNoop        = "noop"
)

var (
	// RequestsTotal counts total requests by command and status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smoothscroll_requests_total",
			Help: "Total number of API requests processed",
		},
		[]string{"command", "status"},
	)

	// RequestDuration tracks request duration by command.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smoothscroll_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
		},
		[]string{"command"},
	)

	// ScrollsStarted counts scrolls that moved or began animating. No-op
	// requests are only counted as finished.
	ScrollsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smoothscroll_scrolls_started_total",
			Help: "Total scroll animations started",
		},
	)

	// ScrollsFinished counts ended scroll requests by outcome.
	ScrollsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smoothscroll_scrolls_finished_total",
			Help: "Total scroll requests finished by outcome",
		},
		[]string{"outcome"},
	)

	// ScrollInterruptions counts interruptions by cause.
	ScrollInterruptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smoothscroll_scroll_interruptions_total",
			Help: "Total scroll interruptions by cause",
		},
		[]string{"cause"},
	)

	// FramesTotal counts animation frames written to containers.
	FramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smoothscroll_frames_total",
			Help: "Total animation frames applied",
		},
	)

	// ScrollDuration tracks how long animations actually ran.
	ScrollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smoothscroll_scroll_duration_seconds",
			Help:    "Elapsed animation time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.025, 2, 10), // 25ms to ~13s
		},
		[]string{"outcome"},
	)

	// ScrollDistance tracks traveled distance in CSS pixels.
	ScrollDistance = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smoothscroll_scroll_distance_pixels",
			Help:    "Distance traveled per scroll in pixels",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12), // 10px to ~20000px
		},
	)

	// ActiveAnimations shows animations currently running.
	ActiveAnimations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smoothscroll_active_animations",
			Help: "Number of scroll animations currently running",
		},
	)

	// BrowserPoolSize shows the configured pool size.
	BrowserPoolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smoothscroll_browser_pool_size",
			Help: "Configured browser pool size",
		},
	)

	// BrowserPoolAvailable shows available browsers in the pool.
	BrowserPoolAvailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smoothscroll_browser_pool_available",
			Help: "Available browsers in pool",
		},
	)

	// ActiveSessions shows open page sessions.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smoothscroll_active_sessions",
			Help: "Number of open page sessions",
		},
	)

	// PresetReloads counts preset file reloads by result.
	PresetReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smoothscroll_preset_reloads_total",
			Help: "Total easing preset reloads by result",
		},
		[]string{"result"},
	)

	// MemoryUsageBytes shows current memory usage.
	MemoryUsageBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smoothscroll_memory_usage_bytes",
			Help: "Current memory usage in bytes (alloc)",
		},
	)

	// GoroutineCount shows current goroutine count.
	GoroutineCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smoothscroll_goroutines",
			Help: "Current number of goroutines",
		},
	)

	// BuildInfo provides build information as labels.
	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smoothscroll_build_info",
			Help: "Build information",
		},
		[]string{"version", "go_version"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ScrollsStarted,
		ScrollsFinished,
		ScrollInterruptions,
		FramesTotal,
		ScrollDuration,
		ScrollDistance,
		ActiveAnimations,
		BrowserPoolSize,
		BrowserPoolAvailable,
		ActiveSessions,
		PresetReloads,
		MemoryUsageBytes,
		GoroutineCount,
		BuildInfo,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// StartCollector periodically samples runtime stats and calls sample, if
// non-nil, until stopCh is closed.
func StartCollector(interval time.Duration, stopCh <-chan struct{}, sample func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			updateRuntimeMetrics()
			if sample != nil {
				sample()
			}
		case <-stopCh:
			return
		}
	}
}

func updateRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	MemoryUsageBytes.Set(float64(m.Alloc))
	GoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// RecordRequest records metrics for a completed request.
func RecordRequest(command, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(command, status).Inc()
	RequestDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordPresetReload records a preset reload attempt.
func RecordPresetReload(err error) {
	if err != nil {
		PresetReloads.WithLabelValues("error").Inc()
		return
	}
	PresetReloads.WithLabelValues("ok").Inc()
}

// UpdatePoolMetrics updates browser pool gauges.
func UpdatePoolMetrics(size, available int) {
	BrowserPoolSize.Set(float64(size))
	BrowserPoolAvailable.Set(float64(available))
}

// UpdateSessionMetrics updates the open session gauge.
func UpdateSessionMetrics(count int) {
	ActiveSessions.Set(float64(count))
}
