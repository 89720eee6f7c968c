package trust

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics() returned nil")
	}
	if len(m.Collectors()) != 3 {
		t.Errorf("expected 3 collectors, got %d", len(m.Collectors()))
	}
}

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	m.IncRecalcTotal()
	m.IncRecalcTotal()
	m.IncRecalcErrors()
	m.ObserveRecalcDuration(0.02)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}

	found := make(map[string]*dto.MetricFamily)
	for _, family := range families {
		found[family.GetName()] = family
	}

	total, ok := found[MetricRecalcTotal]
	if !ok {
		t.Fatalf("metric %s not gathered", MetricRecalcTotal)
	}
	if got := total.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("%s = %f, want 2", MetricRecalcTotal, got)
	}

	errs, ok := found[MetricRecalcErrors]
	if !ok {
		t.Fatalf("metric %s not gathered", MetricRecalcErrors)
	}
	if got := errs.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("%s = %f, want 1", MetricRecalcErrors, got)
	}

	if _, ok := found[MetricRecalcDuration]; !ok {
		t.Errorf("metric %s not gathered", MetricRecalcDuration)
	}
}

func TestMetrics_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := NewMetrics().Register(reg); err != nil {
		t.Fatalf("first Register() returned error: %v", err)
	}
	if err := NewMetrics().Register(reg); err == nil {
		t.Error("second Register() with same names should fail")
	}
}
