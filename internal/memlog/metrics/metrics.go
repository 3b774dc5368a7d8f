package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision log module.
type Metrics struct {
	DecisionsLogged  prometheus.Counter
	OutcomesAttested prometheus.Counter
	AttestDuration   prometheus.Histogram
}

// New creates a Metrics instance with all decision log metrics registered.
func New() *Metrics {
	return &Metrics{
		DecisionsLogged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agentmemory_decisions_logged_total",
			Help: "Total number of decisions logged",
		}),
		OutcomesAttested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agentmemory_outcomes_attested_total",
			Help: "Total number of outcomes attested",
		}),
		AttestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentmemory_attest_duration_seconds",
			Help:    "Duration of AttestOutcome operations (reputation critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementDecisionsLogged records a successful decision log.
func (m *Metrics) IncrementDecisionsLogged() {
	m.DecisionsLogged.Inc()
}

// IncrementOutcomesAttested records a successful attestation.
func (m *Metrics) IncrementOutcomesAttested() {
	m.OutcomesAttested.Inc()
}

// ObserveAttest records the duration of an AttestOutcome operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAttest(start time.Time) {
	m.AttestDuration.Observe(time.Since(start).Seconds())
}
