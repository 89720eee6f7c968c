package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newRegisteredMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return m, reg
}

func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestHTTPMetrics_RecordsRequests(t *testing.T) {
	m, reg := newRegisteredMetrics(t)

	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"trust_score":0.6}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(`{"rating":5}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	total := findFamily(t, reg, MetricHTTPRequestsTotal)
	if total == nil || len(total.GetMetric()) != 1 {
		t.Fatal("expected one requests_total series")
	}
	labels := map[string]string{}
	for _, l := range total.GetMetric()[0].GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	if labels["method"] != "POST" || labels["path"] != "/feedback" || labels["status"] != "201" {
		t.Errorf("labels = %v, want POST /feedback 201", labels)
	}

	if findFamily(t, reg, MetricHTTPRequestDuration) == nil {
		t.Error("duration histogram missing")
	}
}

func TestHTTPMetrics_SkipsHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/health", "/ready"} {
		t.Run(path, func(t *testing.T) {
			m, reg := newRegisteredMetrics(t)
			handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, path, nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if mf := findFamily(t, reg, MetricHTTPRequestsTotal); mf != nil && len(mf.GetMetric()) > 0 {
				t.Errorf("%s produced request metrics; probes should be excluded", path)
			}
		})
	}
}

func TestHTTPMetrics_ResponseSizeHistogram(t *testing.T) {
	m, reg := newRegisteredMetrics(t)
	body := `{"records":[{"id":"fb-1"}]}`

	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	req := httptest.NewRequest(http.MethodGet, "/feedback/user-1", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	mf := findFamily(t, reg, MetricHTTPResponseSizeBytes)
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatal("expected one response size series")
	}
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() != float64(len(body)) {
		t.Errorf("sample sum = %v, want %d", h.GetSampleSum(), len(body))
	}
}

func TestObserveHTTPRequest_DistinctSeries(t *testing.T) {
	m, reg := newRegisteredMetrics(t)

	m.ObserveHTTPRequest("POST", "/feedback", "200", 0.02, 120, 80)
	m.ObserveHTTPRequest("POST", "/feedback", "200", 0.03, 110, 80)
	m.ObserveHTTPRequest("GET", "/trust/{user_id}", "200", 0.01, 0, 60)

	for _, name := range []string{
		MetricHTTPRequestDuration,
		MetricHTTPRequestsTotal,
		MetricHTTPRequestSizeBytes,
		MetricHTTPResponseSizeBytes,
	} {
		if findFamily(t, reg, name) == nil {
			t.Errorf("metric %s not registered", name)
		}
	}

	total := findFamily(t, reg, MetricHTTPRequestsTotal)
	if got := len(total.GetMetric()); got != 2 {
		t.Errorf("requests_total has %d series, want 2", got)
	}
}

func TestMetricsResponseWriter(t *testing.T) {
	mrw := newMetricsResponseWriter(httptest.NewRecorder())

	n1, _ := mrw.Write([]byte("part one "))
	n2, _ := mrw.Write([]byte("part two"))
	if mrw.size != int64(n1+n2) {
		t.Errorf("size = %d, want %d", mrw.size, n1+n2)
	}

	mrw.WriteHeader(http.StatusAccepted)
	mrw.WriteHeader(http.StatusTeapot)
	if mrw.statusCode != http.StatusAccepted {
		t.Errorf("statusCode = %d, first WriteHeader should win", mrw.statusCode)
	}
}
