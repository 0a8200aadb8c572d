// Package metrics exposes Prometheus counters for the render pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/mapfield/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapfield_renders_total",
		Help: "Render calls built, by outcome code",
	}, []string{"outcome"})
	RenderDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapfield_render_duration_ms",
		Help:    "Render pipeline duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	DatasetRows = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapfield_dataset_rows",
		Help:    "Rows parsed per successful render",
		Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 50000},
	})
	RangesDegradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapfield_ranges_degraded_total",
		Help: "Renders that dropped malformed legend ranges",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapfield_cache_hits_total",
		Help: "Render cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapfield_cache_misses_total",
		Help: "Render cache misses",
	})
	ImportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapfield_imports_total",
		Help: "Spreadsheet imports, by outcome code",
	}, []string{"outcome"})
	ImportDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapfield_import_duration_ms",
		Help:    "Spreadsheet import duration in milliseconds",
		Buckets: []float64{5, 20, 50, 100, 500, 1000, 5000, 10000},
	})
)

func init() {
	prometheus.MustRegister(RendersTotal)
	prometheus.MustRegister(RenderDurationMs)
	prometheus.MustRegister(DatasetRows)
	prometheus.MustRegister(RangesDegradedTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ImportsTotal)
	prometheus.MustRegister(ImportDurationMs)
}

// Handler serves the registered metrics for scraping at /metrics.
func Handler() http.Handler { return promhttp.Handler() }

// Recorder feeds core pipeline events into the package counters.
type Recorder struct{}

var _ core.RenderObserver = Recorder{}

func (Recorder) RenderFinished(outcome string, rows int, elapsed time.Duration) {
	RendersTotal.WithLabelValues(outcome).Inc()
	RenderDurationMs.Observe(float64(elapsed.Milliseconds()))
	if outcome == "ok" {
		DatasetRows.Observe(float64(rows))
	}
}

func (Recorder) RangesDegraded() { RangesDegradedTotal.Inc() }

func (Recorder) CacheLookup(hit bool) {
	if hit {
		CacheHitsTotal.Inc()
		return
	}
	CacheMissesTotal.Inc()
}

func (Recorder) ImportFinished(outcome string, elapsed time.Duration) {
	ImportsTotal.WithLabelValues(outcome).Inc()
	ImportDurationMs.Observe(float64(elapsed.Milliseconds()))
}
