package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the agent registry.
type Metrics struct {
	AgentsRegistered prometheus.Counter
}

// New creates a Metrics instance with all agent registry metrics registered.
func New() *Metrics {
	return &Metrics{
		AgentsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agentmemory_agents_registered_total",
			Help: "Total number of agents registered",
		}),
	}
}

// IncrementAgentsRegistered records a successful agent registration.
func (m *Metrics) IncrementAgentsRegistered() {
	m.AgentsRegistered.Inc()
}
