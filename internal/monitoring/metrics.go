package monitoring

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Crossing directions used as the "direction" label.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Metrics holds the counters a presence session reports.
type Metrics struct {
	// Frame counters
	FramesProcessed atomic.Uint64
	FramesSkipped   atomic.Uint64
	FramesRejected  atomic.Uint64

	// Identity bookkeeping
	TrackedIdentities atomic.Int64
	Evictions         atomic.Uint64

	// Loitering identities in the most recent evaluated frame
	Loitering atomic.Int64

	crossings *prometheus.CounterVec
	registry  *prometheus.Registry
}

// NewMetrics creates a Metrics instance with its own Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		crossings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_crossings_total",
			Help: "Zone crossings detected, by direction",
		}, []string{"direction"}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	m.registry.MustRegister(m.crossings)

	gauges := []struct {
		name, help string
		value      func() float64
	}{
		{"presence_frames_processed_total", "Frames evaluated by a session",
			func() float64 { return float64(m.FramesProcessed.Load()) }},
		{"presence_frames_skipped_total", "Frames passed through without evaluation",
			func() float64 { return float64(m.FramesSkipped.Load()) }},
		{"presence_frames_rejected_total", "Frames rejected as malformed",
			func() float64 { return float64(m.FramesRejected.Load()) }},
		{"presence_tracked_identities", "Identities currently held in the history store",
			func() float64 { return float64(m.TrackedIdentities.Load()) }},
		{"presence_evictions_total", "Identities evicted to respect the capacity bound",
			func() float64 { return float64(m.Evictions.Load()) }},
		{"presence_loitering", "Identities flagged as loitering in the latest frame",
			func() float64 { return float64(m.Loitering.Load()) }},
	}
	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help}, g.value))
	}
}

// AddCrossings records n crossings in the given direction.
func (m *Metrics) AddCrossings(direction string, n int) {
	if n <= 0 {
		return
	}
	m.crossings.WithLabelValues(direction).Add(float64(n))
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr. It blocks until the server fails.
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	Opsf("metrics listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
