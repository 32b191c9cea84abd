package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Published prometheus.Counter
	Failures  *prometheus.CounterVec
	Cursor    prometheus.Gauge
	OpenGaps  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantumtrust_audit_relay_published_total",
			Help: "Audit entries acknowledged by Kafka",
		}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quantumtrust_audit_relay_failures_total",
			Help: "Relay batches that failed, by stage",
		}, []string{"stage"}),
		Cursor: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quantumtrust_audit_relay_cursor",
			Help: "Id below which every audit entry has been published",
		}),
		OpenGaps: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quantumtrust_audit_relay_open_gaps",
			Help: "Audit ids the relay is still waiting to see committed",
		}),
	}
}
