package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// useTracing installs an in-memory tracer provider globally for one test.
func useTracing(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return exp
}

// captureLogs routes the default logger into a buffer for one test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestCorrelationID(t *testing.T) {
	useTracing(t)

	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}

	seen := map[string]bool{}
	for range 50 {
		ctx, span := StartSpan(context.Background(), "digits.parse")
		cid := CorrelationID(ctx)
		span.End()

		if len(cid) != 32 || strings.Trim(cid, "0123456789abcdef") != "" {
			t.Fatalf("correlation ID %q is not 32 hex characters", cid)
		}
		if seen[cid] {
			t.Fatalf("duplicate correlation ID %s", cid)
		}
		seen[cid] = true
	}
}

func TestCorrelationID_FollowsRemoteParent(t *testing.T) {
	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	parent := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, Remote: true})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), parent)

	if got := CorrelationID(ctx); got != tid.String() {
		t.Errorf("CorrelationID = %q, want %q", got, tid)
	}
}

func TestLogger(t *testing.T) {
	useTracing(t)
	buf := captureLogs(t)

	Logger(context.Background()).Info("no span")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("log without span carries trace_id: %s", buf)
	}
	buf.Reset()

	ctx, span := StartSpan(context.Background(), "asr.transcribe")
	defer span.End()
	Logger(ctx).Info("with span")

	out := buf.String()
	if !strings.Contains(out, "trace_id="+CorrelationID(ctx)) {
		t.Errorf("log missing trace_id: %s", out)
	}
	if !strings.Contains(out, "span_id="+span.SpanContext().SpanID().String()) {
		t.Errorf("log missing span_id: %s", out)
	}
}

func TestStartOperation(t *testing.T) {
	exp := useTracing(t)

	ctx, parent := StartSpan(context.Background(), "POST /v1/recognize")
	_, failed := StartOperation(ctx, "asr.transcribe", Attr("provider", "whisper"))
	EndSpan(failed, errors.New("boom"))
	_, ok := StartOperation(ctx, "digits.parse")
	EndSpan(ok, nil)
	parent.End()

	spans := exp.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3", len(spans))
	}

	asr := spans[0]
	if asr.Name != "asr.transcribe" || asr.SpanKind != trace.SpanKindInternal {
		t.Errorf("span = %q/%v, want asr.transcribe/internal", asr.Name, asr.SpanKind)
	}
	if asr.Parent.SpanID() != spans[2].SpanContext.SpanID() {
		t.Error("operation span is not a child of the request span")
	}
	if asr.Status.Code != codes.Error || asr.Status.Description != "boom" {
		t.Errorf("status = %+v, want error boom", asr.Status)
	}
	if len(asr.Events) == 0 {
		t.Error("error was not recorded as an event")
	}
	var provider string
	for _, a := range asr.Attributes {
		if a.Key == "provider" {
			provider = a.Value.AsString()
		}
	}
	if provider != "whisper" {
		t.Errorf("provider attribute = %q, want whisper", provider)
	}

	if spans[1].Status.Code != codes.Unset {
		t.Errorf("successful span status = %v, want unset", spans[1].Status.Code)
	}
}
