// Package metrics exports tape sizes as Prometheus metrics.
//
// Tapes are single-goroutine, so nothing here reads a tape directly: the
// goroutine that owns a tape passes Stats snapshots to Observe, typically
// through parallel.Config.Observe.
package metrics

import (
	"strconv"
	"sync"

	"github.com/born-ml/tape/internal/autodiff"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "autodiff"

// Metrics holds per-worker tape gauges and a gradient counter.
type Metrics struct {
	nodes      *prometheus.GaugeVec
	sequence   *prometheus.GaugeVec
	arenaBytes *prometheus.GaugeVec
	arenaCap   *prometheus.GaugeVec
	depth      *prometheus.GaugeVec
	gradients  *prometheus.CounterVec
	mu         sync.Mutex
	lastGrads  map[string]uint64 // per worker, to turn Stats.Gradients into counter deltas
}

// New registers the metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	labels := []string{"worker"}

	return &Metrics{
		nodes: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tape_nodes",
			Help:      "Nodes currently recorded on the tape.",
		}, labels),
		sequence: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tape_sequence_length",
			Help:      "Length of the chaining and non-chaining sequences.",
		}, []string{"worker", "sequence"}),
		arenaBytes: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "arena_bytes",
			Help:      "Arena bytes in use.",
		}, labels),
		arenaCap: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "arena_capacity_bytes",
			Help:      "Arena bytes held, including rewound blocks kept for reuse.",
		}, labels),
		depth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkpoint_depth",
			Help:      "Open checkpoints.",
		}, labels),
		gradients: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gradients_total",
			Help:      "Completed backward passes.",
		}, labels),
		lastGrads: make(map[string]uint64),
	}
}

// Observe records a snapshot of the tape owned by worker.
func (m *Metrics) Observe(worker string, s autodiff.Stats) {
	m.nodes.WithLabelValues(worker).Set(float64(s.Nodes))
	m.sequence.WithLabelValues(worker, "chaining").Set(float64(s.Chaining))
	m.sequence.WithLabelValues(worker, "nonchaining").Set(float64(s.NonChaining))
	m.arenaBytes.WithLabelValues(worker).Set(float64(s.Bytes))
	m.arenaCap.WithLabelValues(worker).Set(float64(s.CapBytes))
	m.depth.WithLabelValues(worker).Set(float64(s.Depth))

	m.mu.Lock()
	last := m.lastGrads[worker]
	m.lastGrads[worker] = s.Gradients
	m.mu.Unlock()
	// A fresh tape for the same worker restarts its count.
	if s.Gradients >= last {
		m.gradients.WithLabelValues(worker).Add(float64(s.Gradients - last))
	} else {
		m.gradients.WithLabelValues(worker).Add(float64(s.Gradients))
	}
}

// Observer adapts Observe to parallel.Config.Observe.
func (m *Metrics) Observer() func(worker int, s autodiff.Stats) {
	return func(worker int, s autodiff.Stats) {
		m.Observe(strconv.Itoa(worker), s)
	}
}
