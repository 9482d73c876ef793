package router

import (
	"math"
	"sort"
)

// Snapshot is a point-in-time health record for one backend.
type Snapshot struct {
	ID          string
	Kind        Kind
	Enabled     bool
	LatencyMs   float64
	FailureRate float64
}

// NewSnapshot builds a Snapshot, rejecting out-of-range values instead of clamping them.
func NewSnapshot(id string, kind Kind, enabled bool, latencyMs, failureRate float64) (Snapshot, error) {
	s := Snapshot{
		ID:          id,
		Kind:        kind,
		Enabled:     enabled,
		LatencyMs:   latencyMs,
		FailureRate: failureRate,
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Validate checks the snapshot invariants.
func (s Snapshot) Validate() error {
	if s.ID == "" {
		return &ValidationError{Field: "id", Value: s.ID, Reason: "must not be empty"}
	}
	if !s.Kind.valid() {
		return &ValidationError{ID: s.ID, Field: "kind", Value: int(s.Kind), Reason: "must be relay or exit"}
	}
	if math.IsNaN(s.LatencyMs) || math.IsInf(s.LatencyMs, 0) || s.LatencyMs < 0 {
		return &ValidationError{ID: s.ID, Field: "latency_ms", Value: s.LatencyMs, Reason: "must be a finite non-negative number"}
	}
	if math.IsNaN(s.FailureRate) || s.FailureRate < 0 || s.FailureRate > 1 {
		return &ValidationError{ID: s.ID, Field: "failure_rate", Value: s.FailureRate, Reason: "must be within [0, 1]"}
	}
	return nil
}

// SnapshotSet is an immutable collection of validated snapshots with unique ids.
type SnapshotSet struct {
	items []Snapshot
}

// NewSnapshotSet validates every snapshot and rejects duplicate ids.
func NewSnapshotSet(snaps ...Snapshot) (SnapshotSet, error) {
	seen := make(map[string]struct{}, len(snaps))
	items := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if err := s.Validate(); err != nil {
			return SnapshotSet{}, err
		}
		if _, ok := seen[s.ID]; ok {
			return SnapshotSet{}, &ValidationError{ID: s.ID, Field: "id", Value: s.ID, Reason: "appears more than once", dup: true}
		}
		seen[s.ID] = struct{}{}
		items = append(items, s)
	}
	return SnapshotSet{items: items}, nil
}

// All returns a copy of the snapshots in input order.
func (set SnapshotSet) All() []Snapshot {
	out := make([]Snapshot, len(set.items))
	copy(out, set.items)
	return out
}

func (set SnapshotSet) Len() int {
	return len(set.items)
}

// Lookup finds a snapshot by id.
func (set SnapshotSet) Lookup(id string) (Snapshot, bool) {
	for _, s := range set.items {
		if s.ID == id {
			return s, true
		}
	}
	return Snapshot{}, false
}

// Sorted returns a copy ordered by kind then id, for stable rendering.
func (set SnapshotSet) Sorted() []Snapshot {
	out := set.All()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}
