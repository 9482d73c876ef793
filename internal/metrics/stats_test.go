package metrics

import (
	"testing"
	"time"

	"golddust/internal/model"
)

func TestSummarize_PerBackend(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	items := []model.Sample{
		{Timestamp: now.Add(-10 * time.Second), BackendID: "r1", LatencyMs: 10},
		{Timestamp: now.Add(-5 * time.Second), BackendID: "r1", LatencyMs: 20, Failed: true},
		{Timestamp: now.Add(-5 * time.Second), BackendID: "e1", LatencyMs: 200},
		{Timestamp: now.Add(-10 * time.Minute), BackendID: "e1", LatencyMs: 1},
	}
	got := Summarize(items, now.Add(-1*time.Minute))
	if len(got) != 2 {
		t.Fatalf("backends=%d", len(got))
	}

	r1 := got["r1"]
	if r1.Count != 2 || r1.Failures != 1 {
		t.Fatalf("r1=%+v", r1)
	}
	if r1.AvgLatencyMs != 15 || r1.FailureRate != 0.5 {
		t.Fatalf("avg=%.2f failure=%.2f", r1.AvgLatencyMs, r1.FailureRate)
	}
	if r1.MinLatencyMs != 10 || r1.MaxLatencyMs != 20 || r1.P95LatencyMs != 20 {
		t.Fatalf("min/max/p95=%.2f/%.2f/%.2f", r1.MinLatencyMs, r1.MaxLatencyMs, r1.P95LatencyMs)
	}

	e1 := got["e1"]
	if e1.Count != 1 || e1.AvgLatencyMs != 200 || e1.FailureRate != 0 {
		t.Fatalf("e1=%+v", e1)
	}

	ids := SortedIDs(got)
	if len(ids) != 2 || ids[0] != "e1" || ids[1] != "r1" {
		t.Fatalf("ids=%v", ids)
	}
}

func TestPercentile_Edges(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4}
	if got := percentile(values, 0); got != 1 {
		t.Fatalf("p0=%v", got)
	}
	if got := percentile(values, 1); got != 4 {
		t.Fatalf("p100=%v", got)
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Fatalf("empty=%v", got)
	}
}
