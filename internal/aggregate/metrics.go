package aggregate

import "github.com/prometheus/client_golang/prometheus"

// Kind labels the aggregate being recomputed.
type Kind string

const (
	KindQuotationTotal   Kind = "quotation_total"
	KindAdoptionQuantity Kind = "adoption_quantity"
	KindOrderTotal       Kind = "order_total"
)

// Metrics counts recomputations by outcome.
type Metrics struct {
	recomputations *prometheus.CounterVec
}

// NewMetrics registers the aggregate collectors. A nil registerer yields nil metrics.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		return nil
	}
	recomputations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cotizador_aggregate_recomputations_total",
		Help: "Aggregate recomputations by aggregate and outcome.",
	}, []string{"aggregate", "outcome"})
	registerer.MustRegister(recomputations)
	return &Metrics{recomputations: recomputations}
}

// Observe records one recomputation.
func (m *Metrics) Observe(kind Kind, changed bool) {
	if m == nil {
		return
	}
	outcome := "unchanged"
	if changed {
		outcome = "written"
	}
	m.recomputations.WithLabelValues(string(kind), outcome).Inc()
}
