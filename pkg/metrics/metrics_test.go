package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.ObserveUploadBytes(10)
	m.ObserveFetchBytes(10)
	m.ObserveUploadDuration(time.Second)
	m.IncActiveFiles()
	m.DecActiveFiles()
	m.ObserveBackendDistribution("memcache", nil)
	m.ObserveHTTPRequest("GET", "/yoink/{id}", 200, time.Millisecond)
	if m.Registry() != nil {
		t.Fatal("nil Metrics.Registry() should be nil")
	}
}

func TestObserveFetchBytesIncrementsCounter(t *testing.T) {
	m := InitRegistry()

	m.ObserveFetchBytes(5)
	m.ObserveFetchBytes(3)

	mf := gatherMetric(t, m, "yeetyoink_transfer_bytes_total")
	got := sumCounterByLabel(mf, "direction", "fetch")
	if got != 8 {
		t.Fatalf("got %v, want 8", got)
	}
}

func TestObserveBackendDistributionLabelsByStatus(t *testing.T) {
	m := InitRegistry()

	m.ObserveBackendDistribution("s3", nil)
	m.ObserveBackendDistribution("s3", errTest)
	m.ObserveBackendDistribution("s3", errTest)

	mf := gatherMetric(t, m, "yeetyoink_backend_distribution_total")
	if got := sumCounterByLabel(mf, "status", "success"); got != 1 {
		t.Fatalf("success count = %v, want 1", got)
	}
	if got := sumCounterByLabel(mf, "status", "error"); got != 2 {
		t.Fatalf("error count = %v, want 2", got)
	}
}

var errTest = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func gatherMetric(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %q not found", name)
	return nil
}

func sumCounterByLabel(mf *dto.MetricFamily, labelName, labelValue string) float64 {
	var total float64
	for _, metric := range mf.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == labelName && lp.GetValue() == labelValue {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}
