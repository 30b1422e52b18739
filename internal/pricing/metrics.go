package pricing

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments director passes. One instance is shared by all four
// domain directors; the domain shows up as a label.
type Metrics struct {
	Calculations    *prometheus.CounterVec
	AdapterFailures *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
}

// NewMetrics registers the pricing collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartforge_pricing_calculations_total",
			Help: "Completed pricing calculation passes per domain.",
		}, []string{"domain"}),
		AdapterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartforge_pricing_adapter_failures_total",
			Help: "Adapter errors that aborted a calculation pass.",
		}, []string{"domain", "adapter"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cartforge_pricing_calculation_seconds",
			Help:    "Wall time of one calculation pass.",
			Buckets: prometheus.DefBuckets,
		}, []string{"domain"}),
	}
	reg.MustRegister(m.Calculations, m.AdapterFailures, m.Duration)
	return m
}
