package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transition outcomes.
const (
	ResultOK        = "ok"
	ResultForbidden = "forbidden"
	ResultConflict  = "conflict"
	ResultError     = "error"
)

// OrderMetrics records order creation and status transitions. A nil receiver
// is a no-op so services can run without a registry.
type OrderMetrics struct {
	submissions *prometheus.CounterVec
	transitions *prometheus.CounterVec
	orderTotal  prometheus.Histogram
	ageAtFinish *prometheus.HistogramVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submissions_total",
		Help: "Order creation attempts by outcome.",
	}, []string{"result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status change attempts by source, target and outcome.",
	}, []string{"from", "to", "result"})
	orderTotal := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_total_amount",
		Help:    "Server computed order totals.",
		Buckets: []float64{5, 10, 20, 30, 50, 75, 100, 150},
	})
	ageAtFinish := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_age_at_terminal_seconds",
		Help:    "Time from placement until an order reaches a terminal status.",
		Buckets: []float64{60, 300, 600, 900, 1800, 3600, 7200},
	}, []string{"status"})
	reg.MustRegister(submissions, transitions, orderTotal, ageAtFinish)
	return &OrderMetrics{
		submissions: submissions,
		transitions: transitions,
		orderTotal:  orderTotal,
		ageAtFinish: ageAtFinish,
	}
}

// ObserveSubmission counts a create attempt; total is only observed on success.
func (m *OrderMetrics) ObserveSubmission(result string, total float64) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(result)).Inc()
	if result == ResultOK {
		m.orderTotal.Observe(total)
	}
}

// ObserveTransition counts a status change attempt.
func (m *OrderMetrics) ObserveTransition(from, to, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(result)).Inc()
}

// ObserveTerminal records how long an order lived before completing or cancelling.
func (m *OrderMetrics) ObserveTerminal(status string, age time.Duration) {
	if m == nil || m.ageAtFinish == nil {
		return
	}
	m.ageAtFinish.WithLabelValues(normalizeLabel(status)).Observe(age.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
