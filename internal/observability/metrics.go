package observability

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
)

const metricsNamespace = "arisan"

// Metrics records committed business events as Prometheus counters. Group IDs
// are not used as labels.
type Metrics struct {
	registry *prometheus.Registry

	periodsStarted    prometheus.Counter
	cyclesAdvanced    prometheus.Counter
	paymentsSubmitted *prometheus.CounterVec
	paymentsReviewed  *prometheus.CounterVec
	draws             *prometheus.CounterVec
	drawPot           prometheus.Counter
	drawsRefused      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		periodsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "periods_started_total",
			Help:      "Periods opened.",
		}),
		cyclesAdvanced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cycles_advanced_total",
			Help:      "Cycle rollovers after every member has won.",
		}),
		paymentsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payments_submitted_total",
			Help:      "Payment proofs submitted, split by whether a rejected payment was replaced.",
		}, []string{"resubmission"}),
		paymentsReviewed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payments_reviewed_total",
			Help:      "Payments approved or rejected by a group creator.",
		}, []string{"status"}),
		draws: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "draws_total",
			Help:      "Draws performed, split by whether the draw completed the cycle.",
		}, []string{"cycle_complete"}),
		drawPot: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "draw_pot_amount_total",
			Help:      "Sum of pots paid out by draws.",
		}),
		drawsRefused: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "draws_refused_total",
			Help:      "Draw attempts refused by a precondition.",
		}, []string{"reason"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) PeriodStarted(string, int) {
	m.periodsStarted.Inc()
}

func (m *Metrics) CycleAdvanced(string, int) {
	m.cyclesAdvanced.Inc()
}

func (m *Metrics) PaymentSubmitted(_ string, replacedRejected bool) {
	m.paymentsSubmitted.WithLabelValues(strconv.FormatBool(replacedRejected)).Inc()
}

func (m *Metrics) PaymentReviewed(_ string, status arisan.PaymentStatus) {
	m.paymentsReviewed.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) DrawPerformed(_ string, pot int64, cycleComplete bool) {
	m.draws.WithLabelValues(strconv.FormatBool(cycleComplete)).Inc()
	m.drawPot.Add(float64(pot))
}

func (m *Metrics) DrawRefused(_ string, reason error) {
	m.drawsRefused.WithLabelValues(refusalReason(reason)).Inc()
}

func refusalReason(err error) string {
	switch {
	case errors.Is(err, arisan.ErrPaymentsIncomplete):
		return "payments_incomplete"
	case errors.Is(err, arisan.ErrNoActivePeriod):
		return "no_active_period"
	case errors.Is(err, arisan.ErrCycleAlreadyComplete):
		return "cycle_complete"
	case errors.Is(err, arisan.ErrAlreadyDrawn):
		return "already_drawn"
	case errors.Is(err, arisan.ErrNotCreator):
		return "not_creator"
	default:
		return "other"
	}
}
