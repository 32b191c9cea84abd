package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks DID lifecycle transitions and coordinator latency.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	Failures          *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	SweepSkipped      prometheus.Counter
}

// New registers the lifecycle metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quantumtrust_lifecycle_transitions_total",
			Help: "Committed lifecycle operations by audit action",
		}, []string{"action"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quantumtrust_lifecycle_failures_total",
			Help: "Failed lifecycle operations by operation and error code",
		}, []string{"operation", "code"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quantumtrust_lifecycle_operation_duration_seconds",
			Help:    "Duration of lifecycle coordinator operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		SweepSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantumtrust_sweep_skipped_total",
			Help: "Sweep candidates that were already terminal when processed",
		}),
	}
}

func (m *Metrics) IncrementTransition(action string) {
	m.Transitions.WithLabelValues(action).Inc()
}

func (m *Metrics) IncrementFailure(operation, code string) {
	m.Failures.WithLabelValues(operation, code).Inc()
}

// ObserveOperation records the duration since start.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddSweepSkipped(n int) {
	m.SweepSkipped.Add(float64(n))
}
