package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder
}

func TestTracing_SpanPerRequest(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		wantName string
	}{
		{http.MethodPost, "/feedback", "POST /feedback"},
		{http.MethodGet, "/trust/user-1", "GET /trust/user-1"},
		{http.MethodPost, "/rank/trips", "POST /rank/trips"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			recorder := recordSpans(t)

			handler := Tracing("trust-api")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("recorded %d spans, want 1", len(spans))
			}
			if got := spans[0].Name(); got != tt.wantName {
				t.Errorf("span name = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestTracing_IDsVisibleToHandler(t *testing.T) {
	recorder := recordSpans(t)

	var traceID, spanID string
	handler := Tracing("trust-api")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = GetTraceID(r)
		spanID = GetSpanID(r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/feedback", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	sc := spans[0].SpanContext()
	if traceID != sc.TraceID().String() {
		t.Errorf("handler saw trace id %q, span has %q", traceID, sc.TraceID())
	}
	if spanID != sc.SpanID().String() {
		t.Errorf("handler saw span id %q, span has %q", spanID, sc.SpanID())
	}
}

func TestTraceIDs_WithoutSpan(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	if got := GetTraceID(req); got != "" {
		t.Errorf("trace id without span = %q, want empty", got)
	}
	if got := GetSpanID(req); got != "" {
		t.Errorf("span id without span = %q, want empty", got)
	}
}
