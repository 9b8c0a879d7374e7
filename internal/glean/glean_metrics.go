package glean

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the detection subsystem.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	GleansEmitted   *prometheus.CounterVec
	VendorsProfiled prometheus.Histogram
	CadenceTotal    *prometheus.CounterVec
	SubmitsTotal    *prometheus.CounterVec
}

// NewMetrics registers and returns detection metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gleaner_runs_total",
			Help: "Total detection runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gleaner_run_duration_seconds",
			Help:    "Duration of detection runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~40s
		}, []string{"status"}),
		GleansEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gleaner_gleans_emitted_total",
			Help: "Total gleans emitted by detector rule.",
		}, []string{"type"}),
		VendorsProfiled: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gleaner_vendors_profiled",
			Help:    "Vendor profiles built per run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 .. ~2048
		}),
		CadenceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gleaner_vendor_cadence_total",
			Help: "Vendor profiles built by inferred cadence.",
		}, []string{"cadence"}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gleaner_submits_total",
			Help: "Total run submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.GleansEmitted,
		m.VendorsProfiled,
		m.CadenceTotal,
		m.SubmitsTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnProfile: func(cadence Cadence) {
			m.CadenceTotal.WithLabelValues(string(cadence)).Inc()
		},
		OnGleans: func(t Type, count int) {
			m.GleansEmitted.WithLabelValues(t.String()).Add(float64(count))
		},
		OnComplete: func(e *CompleteEvent) {
			m.VendorsProfiled.Observe(float64(e.Vendors))
		},
	}
}
