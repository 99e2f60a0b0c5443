package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	expvarDurations = "durations_ms_total"
	expvarResults   = "results_total"
)

var expvarSeq atomic.Uint64

// ExpvarMetricsRecorder publishes per-operation totals under /debug/vars as
// an expvar.Map:
//
//	{"durations_ms_total": {"merge": 12.5}, "results_total": {"merge": {"success": 3}}}
type ExpvarMetricsRecorder struct {
	name      string
	durations *expvar.Map
	results   *expvar.Map
	// guards creation of per-operation result maps
	mu sync.Mutex
}

// ExpvarMetricsSnapshot is a point-in-time copy of an ExpvarMetricsRecorder.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name. expvar names are
// process-global, so a name that is empty or already taken gets a numeric
// suffix.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = "bomgraft_operations"
	}
	base := strings.TrimRight(name, "_0123456789")
	for expvar.Get(name) != nil {
		name = base + "_" + strconv.FormatUint(expvarSeq.Add(1), 10)
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		durations: new(expvar.Map).Init(),
		results:   new(expvar.Map).Init(),
	}
	root := new(expvar.Map).Init()
	root.Set(expvarDurations, rec.durations)
	root.Set(expvarResults, rec.results)
	expvar.Publish(name, root)
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.durations.AddFloat(operation, float64(duration)/float64(time.Millisecond))
	status := "error"
	if success {
		status = "success"
	}
	r.resultsFor(operation).Add(status, 1)
}

func (r *ExpvarMetricsRecorder) resultsFor(operation string) *expvar.Map {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.results.Get(operation).(*expvar.Map); ok {
		return m
	}
	m := new(expvar.Map).Init()
	r.results.Set(operation, m)
	return m
}

// Snapshot copies the published totals into plain maps.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	snap := ExpvarMetricsSnapshot{
		DurationsMS: map[string]float64{},
		Results:     map[string]map[string]int64{},
		RecordedAt:  time.Now().UTC(),
	}
	r.durations.Do(func(kv expvar.KeyValue) {
		if f, ok := kv.Value.(*expvar.Float); ok {
			snap.DurationsMS[kv.Key] = f.Value()
		}
	})
	r.results.Do(func(kv expvar.KeyValue) {
		byStatus, ok := kv.Value.(*expvar.Map)
		if !ok {
			return
		}
		counts := map[string]int64{}
		byStatus.Do(func(s expvar.KeyValue) {
			if n, ok := s.Value.(*expvar.Int); ok {
				counts[s.Key] = n.Value()
			}
		})
		snap.Results[kv.Key] = counts
	})
	return snap
}

// JSONTraceEntry is one finished span as written by JSONTraceTracer.
type JSONTraceEntry struct {
	SpanID     string    `json:"span_id"`
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes one JSON line per finished span and keeps every
// span in memory for inspection.
type JSONTraceTracer struct {
	now func() time.Time

	mu      sync.Mutex
	w       io.Writer
	entries []JSONTraceEntry
}

// NewJSONTracer returns a tracer writing to w; a nil w only retains spans.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	return &JSONTraceTracer{w: w, now: func() time.Time { return time.Now().UTC() }}
}

// Entries returns a copy of all finished spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{
		tracer: t,
		entry:  JSONTraceEntry{SpanID: uuid.NewString(), Operation: operation, StartedAt: t.now()},
	}
}

func (t *JSONTraceTracer) finish(entry JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if t.w == nil {
		return
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(t.w, "%s\n", line)
}

type jsonTraceSpan struct {
	tracer *JSONTraceTracer
	entry  JSONTraceEntry
}

func (s *jsonTraceSpan) End(err error) {
	e := s.entry
	e.EndedAt = s.tracer.now()
	e.DurationMS = float64(e.EndedAt.Sub(e.StartedAt)) / float64(time.Millisecond)
	e.Status = "success"
	if err != nil {
		e.Status = "error"
		e.Error = err.Error()
	}
	s.tracer.finish(e)
}
