package router

import "sort"

// Decision is the engine's answer for one evaluation.
type Decision struct {
	BackendID string
	Kind      Kind
	Reason    Reason
}

type tier struct {
	kind   Kind
	reason Reason
}

// tiers is the strict fallback order: relays first, exits only when no relay is enabled.
var tiers = []tier{
	{kind: KindRelay, reason: ReasonLowestLatencyRelay},
	{kind: KindExit, reason: ReasonRelayUnavailableFallbackExit},
}

// Decide picks the backend a new connection should use. It never mutates set
// and returns ErrNoBackendsAvailable when every backend is disabled or set is empty.
func Decide(set SnapshotSet) (Decision, error) {
	for _, t := range tiers {
		best, ok := bestOf(set.items, t.kind)
		if !ok {
			continue
		}
		return Decision{BackendID: best.ID, Kind: best.Kind, Reason: t.reason}, nil
	}
	return Decision{}, ErrNoBackendsAvailable
}

// Candidates lists enabled backends in the order Decide prefers them.
func Candidates(set SnapshotSet) []Snapshot {
	out := make([]Snapshot, 0, len(set.items))
	for _, t := range tiers {
		start := len(out)
		for _, s := range set.items {
			if s.Enabled && s.Kind == t.kind {
				out = append(out, s)
			}
		}
		tierItems := out[start:]
		sort.Slice(tierItems, func(i, j int) bool { return better(tierItems[i], tierItems[j]) })
	}
	return out
}

func bestOf(items []Snapshot, kind Kind) (Snapshot, bool) {
	var best Snapshot
	found := false
	for _, s := range items {
		if !s.Enabled || s.Kind != kind {
			continue
		}
		if !found || better(s, best) {
			best = s
			found = true
		}
	}
	return best, found
}

// better orders by latency, then failure rate, then id.
func better(a, b Snapshot) bool {
	if a.LatencyMs != b.LatencyMs {
		return a.LatencyMs < b.LatencyMs
	}
	if a.FailureRate != b.FailureRate {
		return a.FailureRate < b.FailureRate
	}
	return a.ID < b.ID
}
