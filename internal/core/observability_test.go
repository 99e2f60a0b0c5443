package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"bomgraft/internal/config"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), OpMerge, true, 5*time.Millisecond)
	rec.Observe(context.Background(), OpMerge, false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)

	snap := rec.Snapshot()
	if snap.DurationsMS[OpMerge] != 10 {
		t.Fatalf("expected 10ms total, got %v", snap.DurationsMS[OpMerge])
	}
	if snap.Results[OpMerge]["success"] != 1 || snap.Results[OpMerge]["error"] != 1 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatalf("empty operation must be ignored")
	}
	published := expvar.Get(rec.Name())
	if published == nil || !strings.Contains(published.String(), OpMerge) {
		t.Fatalf("expected recorder published under %s", rec.Name())
	}

	again := NewExpvarMetricsRecorder(rec.Name())
	if again.Name() == rec.Name() {
		t.Fatalf("expected a unique name for a second recorder")
	}
}

func TestJSONTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), OpSeal)
	span.End(errors.New("boom"))
	_, span = tracer.Start(context.Background(), OpOpen)
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 2 || entries[0].Status != "error" || entries[0].Error != "boom" || entries[1].Status != "success" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].SpanID == "" || entries[0].SpanID == entries[1].SpanID {
		t.Fatalf("expected distinct span ids")
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two JSON lines, got %q", buf.String())
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil || decoded.Operation != OpSeal {
		t.Fatalf("unexpected line %q: %v", lines[0], err)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg)
	rec.Observe(context.Background(), OpMerge, true, 20*time.Millisecond)
	rec.Observe(context.Background(), OpMerge, true, 20*time.Millisecond)
	rec.Observe(context.Background(), OpMerge, false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues(OpMerge, "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues(OpMerge, "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations); n != 1 {
		t.Fatalf("expected one duration series, got %d", n)
	}
}

func TestNewMetricsRecorderSelectsDriver(t *testing.T) {
	if _, ok := NewMetricsRecorder(config.Metrics{Driver: config.MetricsNone}, nil).(noopMetricsRecorder); !ok {
		t.Fatalf("expected noop recorder")
	}
	if _, ok := NewMetricsRecorder(config.Metrics{Driver: config.MetricsExpvar}, nil).(*ExpvarMetricsRecorder); !ok {
		t.Fatalf("expected expvar recorder")
	}
	reg := prometheus.NewRegistry()
	if _, ok := NewMetricsRecorder(config.Metrics{Driver: config.MetricsPrometheus}, reg).(*PrometheusMetricsRecorder); !ok {
		t.Fatalf("expected prometheus recorder")
	}
}
