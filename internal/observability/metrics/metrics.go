package metrics

import "github.com/prometheus/client_golang/prometheus"

// Booking outcome labels.
const (
	OutcomeBooked      = "booked"
	OutcomeExpired     = "expired"
	OutcomeUnavailable = "unavailable"
	OutcomeConflict    = "conflict"
	OutcomeBadRequest  = "bad_request"
	OutcomeError       = "error"
)

// SchedulingMetrics exposes counters for slot generation and booking flows.
type SchedulingMetrics struct {
	generationsTotal prometheus.Counter
	slotsGenerated   prometheus.Counter
	bookingsTotal    *prometheus.CounterVec
	requestsTotal    *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		generationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carebridge",
			Subsystem: "scheduling",
			Name:      "slot_generations_total",
			Help:      "Total slot generation requests",
		}),
		slotsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carebridge",
			Subsystem: "scheduling",
			Name:      "slots_generated_total",
			Help:      "Total candidate slots produced",
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carebridge",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carebridge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status",
		}, []string{"method", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.generationsTotal, m.slotsGenerated, m.bookingsTotal, m.requestsTotal)
	return m
}

func (m *SchedulingMetrics) ObserveGeneration(slotCount int) {
	if m == nil {
		return
	}
	m.generationsTotal.Inc()
	m.slotsGenerated.Add(float64(slotCount))
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveRequest(method, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, status).Inc()
}
