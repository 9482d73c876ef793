package metrics

import (
	"math"
	"sort"
	"time"

	"golddust/internal/model"
)

// Summary is a per-backend statistics snapshot over a window.
type Summary struct {
	BackendID    string
	Count        int
	Failures     int
	From         time.Time
	To           time.Time
	AvgLatencyMs float64
	P95LatencyMs float64
	MinLatencyMs float64
	MaxLatencyMs float64
	FailureRate  float64
}

// Summarize groups samples at or after since by backend and computes their statistics.
func Summarize(items []model.Sample, since time.Time) map[string]Summary {
	grouped := make(map[string][]model.Sample)
	for _, s := range items {
		if s.Timestamp.After(since) || s.Timestamp.Equal(since) {
			grouped[s.BackendID] = append(grouped[s.BackendID], s)
		}
	}

	out := make(map[string]Summary, len(grouped))
	for id, samples := range grouped {
		out[id] = summarize(id, samples)
	}
	return out
}

// SortedIDs returns the summary keys in lexical order.
func SortedIDs(summaries map[string]Summary) []string {
	ids := make([]string, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func summarize(id string, samples []model.Sample) Summary {
	values := make([]float64, 0, len(samples))
	var sum float64
	failures := 0
	minLatency := math.MaxFloat64
	maxLatency := 0.0
	from := samples[0].Timestamp
	to := samples[0].Timestamp

	for _, s := range samples {
		values = append(values, s.LatencyMs)
		sum += s.LatencyMs
		if s.Failed {
			failures++
		}
		if s.LatencyMs < minLatency {
			minLatency = s.LatencyMs
		}
		if s.LatencyMs > maxLatency {
			maxLatency = s.LatencyMs
		}
		if s.Timestamp.Before(from) {
			from = s.Timestamp
		}
		if s.Timestamp.After(to) {
			to = s.Timestamp
		}
	}

	sort.Float64s(values)
	count := float64(len(samples))

	return Summary{
		BackendID:    id,
		Count:        len(samples),
		Failures:     failures,
		From:         from,
		To:           to,
		AvgLatencyMs: sum / count,
		P95LatencyMs: percentile(values, 0.95),
		MinLatencyMs: minLatency,
		MaxLatencyMs: maxLatency,
		FailureRate:  float64(failures) / count,
	}
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return values[0]
	}
	if p >= 1 {
		return values[len(values)-1]
	}
	idx := int(math.Ceil(p*float64(len(values)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}
