package telemetry

import (
	"context"
	"errors"
	"testing"

	"flowengine/pkg/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingProvider(t *testing.T) (*Provider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	p, err := InitWithExporter(Config{ServiceName: "flowsolve-test", SampleRate: 1}, exporter)
	if err != nil {
		t.Fatalf("InitWithExporter() error = %v", err)
	}
	t.Cleanup(func() {
		p.Shutdown(context.Background())
		setGlobal(nil)
	})
	return p, exporter
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		App:     config.AppConfig{Version: "1.2.3", Environment: "staging"},
		Tracing: config.TracingConfig{Enabled: true, Endpoint: "otel:4317", ServiceName: "flowsolve", SampleRate: 0.5},
	}

	got := FromConfig(cfg)
	want := Config{Enabled: true, Endpoint: "otel:4317", ServiceName: "flowsolve", Version: "1.2.3", Environment: "staging", SampleRate: 0.5}
	if got != want {
		t.Errorf("FromConfig() = %+v, want %+v", got, want)
	}
}

func TestInit_Disabled(t *testing.T) {
	p, err := Init(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer setGlobal(nil)

	if p.Tracer() == nil {
		t.Error("disabled provider should still hand out a tracer")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on disabled provider = %v", err)
	}
	if err := p.ForceFlush(context.Background()); err != nil {
		t.Errorf("ForceFlush() on disabled provider = %v", err)
	}
}

func TestGet_Uninitialized(t *testing.T) {
	setGlobal(nil)
	p := Get()
	if p == nil || p.Tracer() == nil {
		t.Fatal("Get() should return a usable provider")
	}

	ctx, span := StartSpan(context.Background(), "noop")
	AddEvent(ctx, "event")
	SetAttributes(ctx, attribute.String("k", "v"))
	EndSpan(span, nil)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}

func TestSpans_Recorded(t *testing.T) {
	p, exporter := newRecordingProvider(t)
	ctx := context.Background()

	ctx, span := StartSpan(ctx, "solve")
	SetAttributes(ctx, GraphAttributes(4, 5, 0, 3)...)
	AddEvent(ctx, "cache_miss")
	EndSpan(span, nil)

	_, failed := StartSpan(context.Background(), "load")
	EndSpan(failed, errors.New("bad file"))

	if err := p.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	solve := spans[0]
	if solve.Name != "solve" || solve.Status.Code != codes.Ok {
		t.Errorf("unexpected solve span: %s %v", solve.Name, solve.Status)
	}
	if attrMap(solve.Attributes)[AttrGraphEdges].AsInt64() != 5 {
		t.Errorf("missing edge count attribute: %v", solve.Attributes)
	}
	if len(solve.Events) != 1 || solve.Events[0].Name != "cache_miss" {
		t.Errorf("expected cache_miss event, got %v", solve.Events)
	}

	load := spans[1]
	if load.Status.Code != codes.Error || load.Status.Description != "bad file" {
		t.Errorf("expected error status, got %v", load.Status)
	}
}

func TestRequestAttributes(t *testing.T) {
	none := attrMap(RequestAttributes("max_flow", "dinic", -1, false))
	if _, ok := none[AttrTarget]; ok {
		t.Error("no target attribute expected without a target")
	}
	if none[AttrAlgorithm].AsString() != "dinic" {
		t.Errorf("unexpected algorithm attribute: %v", none)
	}

	exact := attrMap(RequestAttributes("min_cost", "successive_shortest_path", 7, true))
	if exact[AttrTarget].AsInt64() != 7 || !exact[AttrExact].AsBool() {
		t.Errorf("unexpected target attributes: %v", exact)
	}
}

func TestResultAttributes(t *testing.T) {
	m := attrMap(ResultAttributes("optimal", 23, -4, 3, true))
	if m[AttrValue].AsInt64() != 23 || m[AttrCost].AsInt64() != -4 || !m[AttrCacheHit].AsBool() {
		t.Errorf("unexpected result attributes: %v", m)
	}

	huge := attrMap(ResultAttributes("optimal", ^uint64(0), 0, 1, false))
	if huge[AttrValue].AsInt64() != 1<<63-1 {
		t.Errorf("flow should clamp to MaxInt64, got %d", huge[AttrValue].AsInt64())
	}
}
