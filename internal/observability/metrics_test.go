package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordEntity(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordEntity("facility", "succeeded", 0.01)
	m.RecordEntity("facility", "succeeded", 0.02)
	m.RecordEntity("contractor", "failed", 0.01)

	if got := testutil.ToFloat64(m.EntitiesProcessed.WithLabelValues("facility", "succeeded")); got != 2 {
		t.Errorf("expected 2 succeeded facilities, got %v", got)
	}
	if got := testutil.ToFloat64(m.EntitiesProcessed.WithLabelValues("contractor", "failed")); got != 1 {
		t.Errorf("expected 1 failed contractor, got %v", got)
	}
}

func TestMetrics_RecordRunAndSink(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordRun("write", "success", 1.5, 1700000000)
	m.RecordSinkAttempt("transient")
	m.RecordSinkWrite(0.2, nil)
	m.RecordSinkWrite(0.2, errors.New("boom"))
	m.RecordRows(24, 2)

	if got := testutil.ToFloat64(m.LastSuccessfulRun); got != 1700000000 {
		t.Errorf("expected last run timestamp, got %v", got)
	}
	if got := testutil.ToFloat64(m.SinkAttempts.WithLabelValues("success")); got != 1 {
		t.Errorf("expected 1 successful sink write, got %v", got)
	}
	if got := testutil.ToFloat64(m.RowsEmitted.WithLabelValues("monthly_statistics")); got != 24 {
		t.Errorf("expected 24 monthly rows, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRun("dry_run", "success", 1, 0)
	m.RecordEntity("facility", "succeeded", 0)
	m.RecordRows(1, 1)
	m.RecordDatasetRead(1, 1, 0)
	m.RecordSinkAttempt("transient")
	m.RecordSinkWrite(0, nil)
}
