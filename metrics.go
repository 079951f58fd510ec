package imagehandler

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts invocations and their outcomes.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    prometheus.Histogram
	recoveries  *prometheus.CounterVec
	secretLoads *prometheus.CounterVec
}

// NewMetrics registers the handler metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_handler_invocations_total",
				Help: "Total number of invocations by response status",
			},
			[]string{"status"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "image_handler_invocation_duration_seconds",
				Help:    "Invocation latency in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		recoveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_handler_recoveries_total",
				Help: "Failed invocations by the recovery stage that answered them",
			},
			[]string{"stage"},
		),
		secretLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_handler_secret_loads_total",
				Help: "Signing secret fetches by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) recordInvocation(status int, duration time.Duration) {
	m.invocations.WithLabelValues(strconv.Itoa(status)).Inc()
	m.duration.Observe(duration.Seconds())
}

func (m *Metrics) recordRecovery(stage string) {
	m.recoveries.WithLabelValues(stage).Inc()
}

func (m *Metrics) recordSecretLoad(result string) {
	m.secretLoads.WithLabelValues(result).Inc()
}
