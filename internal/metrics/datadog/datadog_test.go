package datadog

import (
	"context"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"warehouse-etl/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) last() (datadogV2.MetricPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return datadogV2.MetricPayload{}, false
	}
	return f.payloads[len(f.payloads)-1], true
}

func newTestBackend(t *testing.T, sub *fakeSubmitter) *Backend {
	t.Helper()
	b, err := NewBackend(context.Background(), Options{
		JobName:    "warehouse_etl",
		FlushEvery: time.Hour, // keep the loop out of the way
		now:        func() time.Time { return time.Unix(1667485249, 0) },
		submitter:  sub,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b
}

func TestResolveEnvTag(t *testing.T) {
	oldENV := os.Getenv("ENV")
	oldDDENV := os.Getenv("DD_ENV")
	t.Cleanup(func() {
		_ = os.Setenv("ENV", oldENV)
		_ = os.Setenv("DD_ENV", oldDDENV)
	})

	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV_wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV_used_when_ENV_empty", env: "", dd: "stage", want: "env:stage"},
		{name: "default_unknown", env: "", dd: "", want: "env:unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_ = os.Setenv("ENV", tc.env)
			_ = os.Setenv("DD_ENV", tc.dd)
			if got := resolveEnvTag(); got != tc.want {
				t.Fatalf("resolveEnvTag()=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestStageStatusKeyRoundTrip(t *testing.T) {
	s, st := splitStageStatusKey(stageStatusKey("load", "ok"))
	if s != "load" || st != "ok" {
		t.Fatalf("round trip = %q/%q", s, st)
	}
	s, st = splitStageStatusKey("bare")
	if s != "bare" || st != "unknown" {
		t.Fatalf("legacy key = %q/%q", s, st)
	}
}

func TestFlush_SubmitsBufferedSeries(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer b.Close()

	b.IncCounter(MetricStageTotal, 1, metrics.Labels{"stage": "transform", "status": "ok"})
	b.IncCounter(MetricRecordsTotal, 120, metrics.Labels{"table": "fact_sales_order"})
	b.ObserveHistogram(MetricStageDurationSeconds, 2.5, metrics.Labels{"stage": "transform", "status": "ok"})
	b.ObserveHistogram(MetricStageDurationSeconds, 0.5, metrics.Labels{"stage": "transform", "status": "ok"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	payload, ok := sub.last()
	if !ok {
		t.Fatal("nothing submitted")
	}

	names := map[string]int{}
	for _, s := range payload.Series {
		names[s.Metric]++
	}
	if names["etl.stage.total"] != 1 {
		t.Fatalf("stage counter series = %d", names["etl.stage.total"])
	}
	if names["etl.records.total"] != 1 {
		t.Fatalf("records counter series = %d", names["etl.records.total"])
	}
	if names["etl.stage.duration_seconds.p50"] != 1 || names["etl.stage.duration_seconds.max"] != 1 {
		t.Fatalf("duration percentile series missing: %v", names)
	}

	// Buffers were reset: a second flush with nothing new submits nothing.
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	sub.mu.Lock()
	n := len(sub.payloads)
	sub.mu.Unlock()
	if n != 1 {
		t.Fatalf("empty flush still submitted: %d payloads", n)
	}
}

func TestIncCounter_IgnoresUnknownAndNonPositive(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer b.Close()

	b.IncCounter("something_else", 1, nil)
	b.IncCounter(MetricStageTotal, 0, metrics.Labels{"stage": "x", "status": "ok"})
	b.IncCounter(MetricStageTotal, -3, metrics.Labels{"stage": "x", "status": "ok"})
	b.IncCounter(MetricRecordsTotal, 5, nil) // no table label

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, ok := sub.last(); ok {
		t.Fatal("ignored observations still produced a payload")
	}
}

func TestClose_StopsLoopAndFlushesTail(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)

	b.IncCounter(MetricStageTotal, 1, metrics.Labels{"stage": "ingest", "status": "ok"})
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := sub.last(); !ok {
		t.Fatal("tail flush missing")
	}
}

func TestPercentileNearestRank(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentileNearestRank(s, 0.5); got != 6 {
		t.Fatalf("p50 = %v", got)
	}
	if got := percentileNearestRank(s, 1); got != 10 {
		t.Fatalf("p100 = %v", got)
	}
	if got := percentileNearestRank(nil, 0.5); got != 0 {
		t.Fatalf("empty = %v", got)
	}
}

func TestParseTagsCSV(t *testing.T) {
	got := ParseTagsCSV(" env:prod , service:etl ,, ")
	if len(got) != 2 || got[0] != "env:prod" || got[1] != "service:etl" {
		t.Fatalf("ParseTagsCSV = %v", got)
	}
	if ParseTagsCSV("") != nil {
		t.Fatal("empty input should return nil")
	}
}
