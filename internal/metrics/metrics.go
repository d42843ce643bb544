// Package metrics exposes gesture outcomes and grid size to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wcatz/dashboard-grid/internal/grid"
)

const namespace = "dashboard_grid"

// Collector records gesture activity. It implements grid.Observer.
type Collector struct {
	registry   *prometheus.Registry
	candidates *prometheus.CounterVec
	commits    *prometheus.CounterVec
	totalRows  prometheus.Gauge
	widgets    prometheus.Gauge
}

// New creates a collector on its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Placement candidates evaluated, by gesture and outcome.",
		}, []string{"gesture", "outcome"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Gestures committed to the board.",
		}, []string{"gesture"}),
		totalRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_rows",
			Help:      "Rows currently visible on the grid.",
		}),
		widgets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "widgets",
			Help:      "Widgets placed on the board.",
		}),
	}
	c.registry.MustRegister(c.candidates, c.commits, c.totalRows, c.widgets)
	return c
}

// Candidate counts one evaluated candidate.
func (c *Collector) Candidate(phase grid.Phase, accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	c.candidates.WithLabelValues(phase.String(), outcome).Inc()
}

// Committed counts one committed gesture.
func (c *Collector) Committed(phase grid.Phase) {
	c.commits.WithLabelValues(phase.String()).Inc()
}

// Rows records the visible row count.
func (c *Collector) Rows(total int) {
	c.totalRows.Set(float64(total))
}

// Widgets records the number of widgets on the board.
func (c *Collector) Widgets(n int) {
	c.widgets.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
