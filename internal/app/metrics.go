package app

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus counters for the payment pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Allocations counts allocator calls. Labels: result ("ok"|"exhausted"|"error")
	Allocations *prometheus.CounterVec
	// AllocationProbes counts store probes made while searching for a free amount.
	AllocationProbes prometheus.Counter
	// Reconciliations counts inbound payment signals. Labels: method, outcome
	Reconciliations *prometheus.CounterVec
	// Settlements counts settlement outcomes. Labels: outcome
	Settlements *prometheus.CounterVec
	// SweptSubscriptions counts expired subscriptions removed. Labels: revoked ("true"|"false")
	SweptSubscriptions *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monetizegram",
			Name:      "allocations_total",
			Help:      "Unique amount allocations by result.",
		}, []string{"result"}),
		AllocationProbes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "monetizegram",
			Name:      "allocation_probes_total",
			Help:      "Pending amount probes issued by the allocator.",
		}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monetizegram",
			Name:      "reconciliations_total",
			Help:      "Payment signals by method and outcome.",
		}, []string{"method", "outcome"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monetizegram",
			Name:      "settlements_total",
			Help:      "Settlement procedure outcomes.",
		}, []string{"outcome"}),
		SweptSubscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monetizegram",
			Name:      "swept_subscriptions_total",
			Help:      "Expired subscriptions removed by the sweeper.",
		}, []string{"revoked"}),
	}
	if reg != nil {
		reg.MustRegister(m.Allocations, m.AllocationProbes, m.Reconciliations, m.Settlements, m.SweptSubscriptions)
	}
	return m
}

func (m *Metrics) incAllocation(result string) {
	if m == nil || m.Allocations == nil {
		return
	}
	m.Allocations.WithLabelValues(result).Inc()
}

func (m *Metrics) addProbes(n int) {
	if m == nil || m.AllocationProbes == nil || n <= 0 {
		return
	}
	m.AllocationProbes.Add(float64(n))
}

func (m *Metrics) incReconciliation(method Method, outcome string) {
	if m == nil || m.Reconciliations == nil {
		return
	}
	m.Reconciliations.WithLabelValues(string(method), outcome).Inc()
}

func (m *Metrics) incSettlement(outcome string) {
	if m == nil || m.Settlements == nil {
		return
	}
	m.Settlements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) incSwept(revoked bool) {
	if m == nil || m.SweptSubscriptions == nil {
		return
	}
	label := "false"
	if revoked {
		label = "true"
	}
	m.SweptSubscriptions.WithLabelValues(label).Inc()
}
