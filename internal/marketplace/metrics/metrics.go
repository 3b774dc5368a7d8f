package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the marketplace module.
type Metrics struct {
	ModulesRegistered prometheus.Counter
	Purchases         prometheus.Counter
	PurchaseVolume    prometheus.Counter
	PurchaseDuration  prometheus.Histogram
}

// New creates a Metrics instance with all marketplace metrics registered.
func New() *Metrics {
	return &Metrics{
		ModulesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agentmemory_modules_registered_total",
			Help: "Total number of modules published",
		}),
		Purchases: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agentmemory_purchases_total",
			Help: "Total number of completed purchases",
		}),
		PurchaseVolume: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agentmemory_purchase_volume_units_total",
			Help: "Total value moved through completed purchases, in base units",
		}),
		PurchaseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentmemory_purchase_duration_seconds",
			Help:    "Duration of Purchase operations (payment critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementModulesRegistered records a successful module registration.
func (m *Metrics) IncrementModulesRegistered() {
	m.ModulesRegistered.Inc()
}

// ObservePurchase records a completed purchase and its value.
func (m *Metrics) ObservePurchase(start time.Time, price uint64) {
	m.Purchases.Inc()
	m.PurchaseVolume.Add(float64(price))
	m.PurchaseDuration.Observe(time.Since(start).Seconds())
}
