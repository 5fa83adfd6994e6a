package prune

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports search activity to Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	cells        prometheus.Counter
	contractions *prometheus.CounterVec
	outputs      *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	bufferSize   prometheus.Gauge
	loup         prometheus.Gauge
	uplo         prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates the collectors in a dedicated registry under
// namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		cells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_total",
			Help:      "Total number of search cells created",
		}),
		contractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contractions_total",
			Help:      "Contractions applied to cells, by outcome",
		}, []string{"outcome"}),
		outputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outputs_total",
			Help:      "Boxes reported by the solver, by kind",
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed searches, by engine and status",
		}, []string{"engine", "status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of searches",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		bufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_cells",
			Help:      "Cells pending in the search buffer",
		}),
		loup: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loup",
			Help:      "Best objective value at a proven-feasible point",
		}),
		uplo: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uplo",
			Help:      "Proven lower bound of the optimum",
		}),
	}
	registry.MustRegister(m.cells, m.contractions, m.outputs, m.runs,
		m.runDuration, m.bufferSize, m.loup, m.uplo)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) recordCell() {
	if m == nil {
		return
	}
	m.cells.Inc()
}

func (m *Metrics) recordContraction(o Outcome) {
	if m == nil {
		return
	}
	m.contractions.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) recordOutput(k OutputKind) {
	if m == nil {
		return
	}
	m.outputs.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) recordRun(engine, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(engine, status).Inc()
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) setBufferSize(n int) {
	if m == nil {
		return
	}
	m.bufferSize.Set(float64(n))
}

func (m *Metrics) setBounds(uplo, loup float64) {
	if m == nil {
		return
	}
	m.uplo.Set(uplo)
	m.loup.Set(loup)
}
