package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/bankledger/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger operation metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	MovedAmount       *prometheus.HistogramVec

	// Account metrics
	AccountsOpened prometheus.Counter

	// Loan metrics
	LoansRequested prometheus.Counter
	LoanDecisions  *prometheus.CounterVec

	// Guard metrics
	LockBusy       *prometheus.CounterVec
	LockWait       prometheus.Histogram
	StorageRetries prometheus.Counter

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxErrors    prometheus.Counter

	// API metrics
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	HTTPInFlight      prometheus.Gauge
	IdempotentReplays prometheus.Counter
}

// New creates all Prometheus metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_operations_total",
				Help: "Ledger operations by name and outcome kind",
			},
			[]string{"operation", "result"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_operation_duration_seconds",
				Help:    "Duration of ledger operations, lock wait included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		MovedAmount: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_moved_amount",
				Help:    "Amounts moved by successful operations",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"operation"},
		),

		AccountsOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_accounts_opened_total",
			Help: "Total number of accounts opened",
		}),

		LoansRequested: f.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_loans_requested_total",
			Help: "Total number of loans requested",
		}),
		LoanDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_loan_decisions_total",
				Help: "Loan decisions by verdict and outcome kind",
			},
			[]string{"decision", "result"},
		),

		LockBusy: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_lock_busy_total",
				Help: "Lock acquisitions that gave up waiting",
			},
			[]string{"driver"},
		),
		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankledger_lock_wait_seconds",
			Help:    "Time spent acquiring resource locks",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2.5, 5},
		}),
		StorageRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_storage_retries_total",
			Help: "Transient storage conflicts that were retried",
		}),

		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_outbox_published_total",
			Help: "Outbox events delivered",
		}),
		OutboxErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_outbox_errors_total",
			Help: "Outbox delivery failures",
		}),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "bankledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
		IdempotentReplays: f.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_idempotent_replays_total",
			Help: "Responses served from the idempotency store",
		}),
	}
}

// ObserveOperation records the outcome and latency of a ledger operation.
// It is safe to call on a nil *Metrics.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, result(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveAmount records an amount moved by a successful operation.
func (m *Metrics) ObserveAmount(operation string, amount float64) {
	if m == nil {
		return
	}
	m.MovedAmount.WithLabelValues(operation).Observe(amount)
}

// ObserveLoanDecision records a loan decision outcome.
func (m *Metrics) ObserveLoanDecision(decision string, err error) {
	if m == nil {
		return
	}
	m.LoanDecisions.WithLabelValues(decision, result(err)).Inc()
}

// ObserveLockWait records a lock acquisition attempt for driver.
func (m *Metrics) ObserveLockWait(driver string, start time.Time, busy bool) {
	if m == nil {
		return
	}
	m.LockWait.Observe(time.Since(start).Seconds())
	if busy {
		m.LockBusy.WithLabelValues(driver).Inc()
	}
}

// IncRetry counts one retried storage conflict.
func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.StorageRetries.Inc()
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}
