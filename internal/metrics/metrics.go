// Package metrics exposes Prometheus counters for list mutations, view
// sessions and initial loads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	Mutations    *prometheus.CounterVec
	DeleteMisses prometheus.Counter
	ViewsActive  prometheus.Gauge
	ViewsTotal   prometheus.Counter
	LoadDuration *prometheus.HistogramVec
}

// New registers the collectors on a private registry so several servers (and
// tests) can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storevec_mutations_total",
			Help: "List mutations applied, by operation",
		}, []string{"op"}),
		DeleteMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "storevec_delete_misses_total",
			Help: "Delete requests for ids not present in the list",
		}),
		ViewsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "storevec_views_active",
			Help: "Page views currently holding a list",
		}),
		ViewsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "storevec_views_total",
			Help: "Page views created",
		}),
		LoadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storevec_initial_load_seconds",
			Help:    "Initial loader latency",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"result"}),
	}
}

// ObserveLoad records one initial load.
func (m *Metrics) ObserveLoad(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LoadDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
