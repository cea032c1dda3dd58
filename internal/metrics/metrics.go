// Package metrics handles Prometheus metrics initialization and system monitoring.
package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// SetLogger replaces the package-level logger.
func SetLogger(l *logrus.Logger) { log = l }

// Prometheus metrics - exported for use by other packages.
var (
	LookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mimedb_lookups_total",
		Help: "Total number of lookups by kind and result.",
	}, []string{"kind", "result"})
	MutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mimedb_mutations_total",
		Help: "Total number of add and remove operations applied to the store.",
	}, []string{"op"})
	ReindexDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mimedb_reindex_duration_seconds",
		Help:    "Time spent rebuilding the lookup tables.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})
	Types = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mimedb_types",
		Help: "Number of MIME types in the published index.",
	})
	Extensions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mimedb_extensions",
		Help: "Number of extensions in the published index.",
	})
	BackendOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mimedb_backend_operations_total",
		Help: "Total number of backend load and save operations.",
	}, []string{"backend", "op", "result"})
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path"})
	MemoryUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memory_usage_bytes",
		Help: "Current memory usage in bytes.",
	})
	CpuUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cpu_usage_percent",
		Help: "Current CPU usage percentage.",
	})
	Goroutines = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goroutines",
		Help: "Number of running goroutines.",
	})
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. Later calls are no-ops.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			LookupsTotal,
			MutationsTotal,
			ReindexDuration,
			Types,
			Extensions,
			BackendOperationsTotal,
			RequestsTotal,
			MemoryUsage,
			CpuUsage,
			Goroutines,
		)
		log.Info("Prometheus metrics initialized")
	})
}

// ObserveBackend counts one backend operation.
func ObserveBackend(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	BackendOperationsTotal.WithLabelValues(backend, op, result).Inc()
}

// UpdateSystemMetrics updates memory, CPU, and goroutine metrics.
func UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.Set(float64(m.Alloc))
	Goroutines.Set(float64(runtime.NumGoroutine()))

	cpuPercent, err := cpu.Percent(time.Second, false)
	if err == nil && len(cpuPercent) > 0 {
		CpuUsage.Set(cpuPercent[0])
	}
}

// RunSystemMetrics calls UpdateSystemMetrics every interval until done is closed.
func RunSystemMetrics(done <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			UpdateSystemMetrics()
		}
	}
}
