package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.LedgerOperations == nil || m.HTTPRequests == nil || m.PublishFailures == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.ObserveOperation("withdraw", "created", 5*time.Millisecond)

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("transfer", "replayed", time.Millisecond)
	m.ObserveOperation("transfer", "replayed", time.Millisecond)
	m.ObserveOperation("transfer", "conflict", time.Millisecond)

	if got := testutil.ToFloat64(m.LedgerOperations.WithLabelValues("transfer", "replayed")); got != 2 {
		t.Fatalf("expected 2 replays, got %v", got)
	}

	if got := testutil.CollectAndCount(m.OperationDuration); got != 1 {
		t.Fatalf("expected one duration series, got %d", got)
	}
}

func TestObservePublish(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePublish("account.created", nil)
	m.ObservePublish("account.created", errors.New("broker down"))

	if got := testutil.ToFloat64(m.EventsPublished.WithLabelValues("account.created")); got != 1 {
		t.Fatalf("expected one delivered event, got %v", got)
	}

	if got := testutil.ToFloat64(m.PublishFailures.WithLabelValues("account.created")); got != 1 {
		t.Fatalf("expected one failure, got %v", got)
	}
}
