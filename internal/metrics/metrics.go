package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus instruments for one chat process
type Metrics struct {
	Registry  *prometheus.Registry
	Turns     *prometheus.CounterVec
	Fallbacks *prometheus.CounterVec
	TurnTime  prometheus.Histogram
	Facts     prometheus.Gauge
}

// New registers the instruments on a private registry
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Processed turns by outcome.",
		}, []string{"outcome"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Fallback replies by reason.",
		}, []string{"reason"}),
		TurnTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_ms",
			Help:      "Time to produce a reply in milliseconds.",
			Buckets:   []float64{1, 5, 25, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
		Facts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_facts",
			Help:      "Number of remembered facts.",
		}),
	}
}

func (m *Metrics) ObserveTurn(outcome string, elapsed time.Duration) {
	m.Turns.WithLabelValues(outcome).Inc()
	m.TurnTime.Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) ObserveFallback(reason string) {
	m.Fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveFacts(n int) {
	m.Facts.Set(float64(n))
}
