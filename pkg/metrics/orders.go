package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics counts order lifecycle transitions and child fetches.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
	fetches     *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order lifecycle transitions.",
	}, []string{"transition"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_children_fetch_total",
		Help: "Line item and adjustment fetches by result.",
	}, []string{"result"})
	reg.MustRegister(transitions, fetches)
	return &OrderMetrics{transitions: transitions, fetches: fetches}
}

func (o *OrderMetrics) IncTransition(transition string) {
	if o == nil || o.transitions == nil {
		return
	}
	o.transitions.WithLabelValues(normalizeLabel(transition)).Inc()
}

func (o *OrderMetrics) IncFetch(ok bool) {
	if o == nil || o.fetches == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	o.fetches.WithLabelValues(result).Inc()
}
