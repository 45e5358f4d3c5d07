package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/bankledger/internal/domain"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.Operations == nil || m.HTTPRequests == nil || m.LockBusy == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.AccountsOpened.Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestObserveOperationLabelsByKind(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("withdraw", time.Now(), nil)
	m.ObserveOperation("withdraw", time.Now(), domain.ErrInsufficientFunds)
	m.ObserveOperation("withdraw", time.Now(), &domain.Error{Kind: domain.ErrInsufficientFunds})
	m.ObserveOperation("withdraw", time.Now(), errors.New("unclassified"))

	if got := testutil.ToFloat64(m.Operations.WithLabelValues("withdraw", "ok")); got != 1 {
		t.Fatalf("expected 1 ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues("withdraw", "insufficient_funds")); got != 2 {
		t.Fatalf("expected 2 insufficient_funds, got %v", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues("withdraw", "unknown")); got != 1 {
		t.Fatalf("expected 1 unknown, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.ObserveOperation("deposit", time.Now(), nil)
	m.ObserveAmount("deposit", 10)
	m.ObserveLoanDecision("approve", nil)
	m.ObserveLockWait("local", time.Now(), true)
	m.IncRetry()
}

func TestObserveLockWaitCountsBusy(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLockWait("redis", time.Now(), false)
	m.ObserveLockWait("redis", time.Now(), true)

	if got := testutil.ToFloat64(m.LockBusy.WithLabelValues("redis")); got != 1 {
		t.Fatalf("expected 1 busy, got %v", got)
	}
}
