// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the booking counters.
const (
	OutcomeSuccess    = "success"
	OutcomeConflict   = "conflict"
	OutcomeValidation = "validation"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
)

// Metrics groups the HTTP and booking collectors.  Every recording method is
// safe on a nil receiver so that services can run without metrics in tests.
type Metrics struct {
	// HTTP requests by method, route and status code
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP latency by method and route
	HTTPRequestDuration *prometheus.HistogramVec

	// booking operations by outcome
	HoldsTotal         *prometheus.CounterVec
	PurchasesTotal     *prometheus.CounterVec
	CancellationsTotal *prometheus.CounterVec

	SeatsSoldTotal prometheus.Counter
	// ledger entries rewritten by read-repair, by action (reconstructed, freed)
	ReadRepairsTotal *prometheus.CounterVec
	// compensation steps that failed and left work for read-repair
	CompensationFailuresTotal *prometheus.CounterVec
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HoldsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_holds_total",
				Help: "Seat hold attempts by outcome",
			},
			[]string{"outcome"},
		),
		PurchasesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_purchases_total",
				Help: "Ticket purchase attempts by outcome",
			},
			[]string{"outcome"},
		),
		CancellationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_cancellations_total",
				Help: "Ticket cancellation attempts by outcome",
			},
			[]string{"outcome"},
		),
		SeatsSoldTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "booking_seats_sold_total",
				Help: "Seats sold through successful purchases",
			},
		),
		ReadRepairsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_ledger_read_repairs_total",
				Help: "Seat ledger entries rewritten while serving seat maps",
			},
			[]string{"action"},
		),
		CompensationFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_compensation_failures_total",
				Help: "Compensating writes that failed",
			},
			[]string{"step"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HoldsTotal,
		m.PurchasesTotal,
		m.CancellationsTotal,
		m.SeatsSoldTotal,
		m.ReadRepairsTotal,
		m.CompensationFailuresTotal,
	)
	return m
}

func (m *Metrics) Hold(outcome string) {
	if m != nil {
		m.HoldsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Purchase(outcome string, seats int) {
	if m == nil {
		return
	}
	m.PurchasesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.SeatsSoldTotal.Add(float64(seats))
	}
}

func (m *Metrics) Cancellation(outcome string) {
	if m != nil {
		m.CancellationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ReadRepair(action string, n int) {
	if m != nil && n > 0 {
		m.ReadRepairsTotal.WithLabelValues(action).Add(float64(n))
	}
}

func (m *Metrics) CompensationFailure(step string) {
	if m != nil {
		m.CompensationFailuresTotal.WithLabelValues(step).Inc()
	}
}
