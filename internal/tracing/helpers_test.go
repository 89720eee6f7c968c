package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder
}

func singleSpan(t *testing.T, recorder *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	return spans[0]
}

func TestStartDBSpan_NamesAndAttributes(t *testing.T) {
	tests := []struct {
		name      string
		table     string
		operation DBOperation
		wantName  string
	}{
		{"query", "feedback", DBOperationQuery, "query feedback"},
		{"insert", "trust_signals", DBOperationInsert, "insert trust_signals"},
		{"update", "category_weights", DBOperationUpdate, "update category_weights"},
		{"delete", "entity_destinations", DBOperationDelete, "delete entity_destinations"},
		{"exec without table", "", DBOperationExec, "exec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := spanRecorder(t)

			_, end := StartDBSpan(context.Background(), tt.table, tt.operation)
			end(nil)

			span := singleSpan(t, recorder)
			if span.Name() != tt.wantName {
				t.Errorf("span name = %q, want %q", span.Name(), tt.wantName)
			}

			got := map[string]string{}
			for _, attr := range span.Attributes() {
				got[string(attr.Key)] = attr.Value.AsString()
			}
			if got["db.system"] != "postgresql" {
				t.Errorf("db.system = %q", got["db.system"])
			}
			if got["db.operation"] != string(tt.operation) {
				t.Errorf("db.operation = %q, want %q", got["db.operation"], tt.operation)
			}
			table, present := got["db.sql.table"]
			if tt.table == "" && present {
				t.Error("db.sql.table set for tableless span")
			}
			if tt.table != "" && table != tt.table {
				t.Errorf("db.sql.table = %q, want %q", table, tt.table)
			}
		})
	}
}

func TestEndSpan_ErrorStatus(t *testing.T) {
	recorder := spanRecorder(t)
	failure := errors.New("connection reset")

	_, end := StartDBSpan(context.Background(), "feedback", DBOperationQuery)
	end(failure)

	span := singleSpan(t, recorder)
	if span.Status().Code.String() != "Error" {
		t.Errorf("status = %s, want Error", span.Status().Code)
	}
	if span.Status().Description != failure.Error() {
		t.Errorf("description = %q, want %q", span.Status().Description, failure.Error())
	}
}

func TestStartSpan(t *testing.T) {
	recorder := spanRecorder(t)

	_, end := StartSpan(context.Background(), "recalculate_trust")
	end(nil)

	span := singleSpan(t, recorder)
	if span.Name() != "recalculate_trust" {
		t.Errorf("span name = %q", span.Name())
	}
	if code := span.Status().Code.String(); code == "Error" {
		t.Errorf("clean end produced status %s", code)
	}

	recorder2 := spanRecorder(t)
	_, end = StartSpan(context.Background(), "recalculate_trust")
	end(errors.New("store unavailable"))
	if singleSpan(t, recorder2).Status().Code.String() != "Error" {
		t.Error("error end did not set Error status")
	}
}

func TestAddEvent(t *testing.T) {
	recorder := spanRecorder(t)

	ctx, span := otel.Tracer("test").Start(context.Background(), "submit")
	AddEvent(ctx, "cache_invalidated",
		attribute.String("key", "agg:entity:trip-1"),
		attribute.Int("count", 3),
	)
	span.End()

	events := singleSpan(t, recorder).Events()
	if len(events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(events))
	}
	if events[0].Name != "cache_invalidated" {
		t.Errorf("event name = %q", events[0].Name)
	}
	if len(events[0].Attributes) != 2 {
		t.Errorf("event has %d attributes, want 2", len(events[0].Attributes))
	}
}

func TestSetAttributes(t *testing.T) {
	recorder := spanRecorder(t)

	ctx, span := otel.Tracer("test").Start(context.Background(), "submit")
	SetAttributes(ctx,
		attribute.String("user_id", "user-123"),
		attribute.Int("rating", 5),
	)
	span.End()

	got := map[string]bool{}
	for _, attr := range singleSpan(t, recorder).Attributes() {
		got[string(attr.Key)] = true
	}
	if !got["user_id"] || !got["rating"] {
		t.Errorf("attributes missing, got %v", got)
	}
}
