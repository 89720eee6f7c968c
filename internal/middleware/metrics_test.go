package middleware

import (
	"testing"
)

func TestMetrics_RateLimitCounters(t *testing.T) {
	m, reg := newRegisteredMetrics(t)

	m.IncRateLimitRequests("/feedback", "user")
	m.IncRateLimitRequests("/feedback", "user")
	m.IncRateLimitRequests("/rank/trips", "ip")
	m.IncRateLimitBlocked("/feedback", "user")

	requests := findFamily(t, reg, MetricRateLimitRequests)
	if requests == nil {
		t.Fatalf("%s not registered", MetricRateLimitRequests)
	}
	if got := len(requests.GetMetric()); got != 2 {
		t.Errorf("requests has %d series, want 2 (one per endpoint/key pair)", got)
	}
	for _, series := range requests.GetMetric() {
		for _, l := range series.GetLabel() {
			if l.GetName() == "endpoint" && l.GetValue() == "/feedback" {
				if v := series.GetCounter().GetValue(); v != 2 {
					t.Errorf("/feedback requests = %v, want 2", v)
				}
			}
		}
	}

	blocked := findFamily(t, reg, MetricRateLimitBlocked)
	if blocked == nil {
		t.Fatalf("%s not registered", MetricRateLimitBlocked)
	}
	if got := len(blocked.GetMetric()); got != 1 {
		t.Errorf("blocked has %d series, want 1", got)
	}
}

func TestMetrics_RedisErrorCounter(t *testing.T) {
	m, reg := newRegisteredMetrics(t)

	m.IncRateLimitRedisErrors()
	m.IncRateLimitRedisErrors()

	mf := findFamily(t, reg, MetricRateLimitRedisErrors)
	if mf == nil {
		t.Fatalf("%s not registered", MetricRateLimitRedisErrors)
	}
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 2 {
		t.Errorf("redis error counter = %v, want 2", v)
	}
}

func TestMetrics_Collectors(t *testing.T) {
	m := NewMetrics()
	if got := len(m.Collectors()); got != 7 {
		t.Errorf("Collectors() returned %d, want 7", got)
	}
}
