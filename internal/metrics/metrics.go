package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Search metrics
	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "search",
		Name:      "requests_total",
		Help:      "Total nearby-place searches by outcome",
	}, []string{"outcome"})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trailmap",
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "Nearby-place search latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	// Area resolution metrics
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "area",
		Name:      "resolutions_total",
		Help:      "Total area resolutions by overlay kind and deciding rule",
	}, []string{"kind", "decision"})

	// Overlay orchestration metrics
	RefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "overlays",
		Name:      "refreshes_total",
		Help:      "Total overlay refresh requests",
	})

	OverlaysPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "overlays",
		Name:      "published_total",
		Help:      "Total overlays published to the renderer",
	})

	OverlaysDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "overlays",
		Name:      "discarded_total",
		Help:      "Total overlays dropped because a newer refresh superseded them",
	})

	OverlaysCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trailmap",
		Subsystem: "overlays",
		Name:      "current",
		Help:      "Overlays currently displayed",
	})
)

// Search outcomes
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// ObserveSearch records one search and its latency
func ObserveSearch(outcome string, started time.Time) {
	SearchesTotal.WithLabelValues(outcome).Inc()
	SearchDuration.Observe(time.Since(started).Seconds())
}

// Handler returns the Prometheus /metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
