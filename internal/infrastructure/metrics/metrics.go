package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/cashflow/internal/domain"
)

// Command outcomes used as label values.
const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeNotFound    = "not_found"
	OutcomeConflict    = "conflict"
	OutcomeUnavailable = "unavailable"
	OutcomeCorrupt     = "corrupt"
	OutcomeError       = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Command metrics
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	EventsAppended  *prometheus.CounterVec
	AppendConflicts prometheus.Counter
	StorageErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge
}

// New creates and registers all Prometheus metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics and registers them on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_commands_total",
				Help: "Total account commands by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cashflow_command_duration_seconds",
				Help:    "Duration of account commands",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		EventsAppended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_events_appended_total",
				Help: "Total events appended by event type",
			},
			[]string{"event_type"},
		),
		AppendConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashflow_append_conflicts_total",
			Help: "Total appends rejected because the stream moved",
		}),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_storage_errors_total",
				Help: "Total commands that failed on the event store",
			},
			[]string{"command"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cashflow_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cashflow_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
	}
}

// ObserveCommand records the outcome and latency of one command.
func (m *Metrics) ObserveCommand(command string, err error, elapsed time.Duration) {
	outcome := Outcome(err)

	m.Commands.WithLabelValues(command, outcome).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())

	switch outcome {
	case OutcomeConflict:
		m.AppendConflicts.Inc()
	case OutcomeUnavailable:
		m.StorageErrors.WithLabelValues(command).Inc()
	}
}

// ObserveAppend counts appended events by type.
func (m *Metrics) ObserveAppend(events []domain.Event) {
	for _, e := range events {
		m.EventsAppended.WithLabelValues(string(e.Type())).Inc()
	}
}

// Outcome maps a command error to its label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrConcurrentModification):
		return OutcomeConflict
	case errors.Is(err, domain.ErrStorageUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, domain.ErrAccountNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrMalformedHistory), errors.Is(err, domain.ErrUnknownEventType):
		return OutcomeCorrupt
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrInvalidOwnerName),
		errors.Is(err, domain.ErrInvalidAccountID),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrAccountClosed):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
