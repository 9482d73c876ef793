package router

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		kind    Kind
		latency float64
		failure float64
		field   string
	}{
		{name: "empty id", id: "", kind: KindRelay, field: "id"},
		{name: "unknown kind", id: "x", kind: Kind(9), field: "kind"},
		{name: "zero kind", id: "x", kind: 0, field: "kind"},
		{name: "negative latency", id: "x", kind: KindRelay, latency: -1, field: "latency_ms"},
		{name: "nan latency", id: "x", kind: KindRelay, latency: math.NaN(), field: "latency_ms"},
		{name: "inf latency", id: "x", kind: KindExit, latency: math.Inf(1), field: "latency_ms"},
		{name: "failure above one", id: "x", kind: KindRelay, failure: 1.01, field: "failure_rate"},
		{name: "failure below zero", id: "x", kind: KindRelay, failure: -0.01, field: "failure_rate"},
		{name: "nan failure", id: "x", kind: KindRelay, failure: math.NaN(), field: "failure_rate"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewSnapshot(tc.id, tc.kind, true, tc.latency, tc.failure)
			require.ErrorIs(t, err, ErrInvalidSnapshot)
			assert.NotErrorIs(t, err, ErrDuplicateID)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestNewSnapshot_BoundsAreInclusive(t *testing.T) {
	t.Parallel()

	for _, failure := range []float64{0, 1} {
		s, err := NewSnapshot("edge", KindExit, false, 0, failure)
		require.NoError(t, err)
		assert.Equal(t, failure, s.FailureRate)
	}
}

func TestNewSnapshotSet_RejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	_, err := NewSnapshotSet(
		snap("R1", KindRelay, true, 1, 0),
		snap("R1", KindExit, true, 2, 0),
	)
	require.ErrorIs(t, err, ErrDuplicateID)
	require.ErrorIs(t, err, ErrInvalidSnapshot)
	assert.Contains(t, err.Error(), `"R1"`)
}

func TestNewSnapshotSet_ValidatesMembers(t *testing.T) {
	t.Parallel()

	_, err := NewSnapshotSet(snap("R1", KindRelay, true, 1, 2))
	require.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestSnapshotSet_IsIsolatedFromCaller(t *testing.T) {
	t.Parallel()

	in := []Snapshot{snap("R1", KindRelay, true, 10, 0)}
	set, err := NewSnapshotSet(in...)
	require.NoError(t, err)

	in[0].Enabled = false
	out := set.All()
	out[0].LatencyMs = 999

	got, ok := set.Lookup("R1")
	require.True(t, ok)
	assert.True(t, got.Enabled)
	assert.Equal(t, 10.0, got.LatencyMs)

	_, ok = set.Lookup("missing")
	assert.False(t, ok)
}

func TestSnapshotSet_Sorted(t *testing.T) {
	t.Parallel()

	set, err := NewSnapshotSet(
		snap("b", KindExit, true, 1, 0),
		snap("z", KindRelay, true, 1, 0),
		snap("a", KindExit, true, 1, 0),
	)
	require.NoError(t, err)

	var ids []string
	for _, s := range set.Sorted() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"z", "a", "b"}, ids)
	assert.Equal(t, 3, set.Len())
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Kind{"relay": KindRelay, " EXIT ": KindExit, "oxen": KindRelay, "Tor": KindExit} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseKind("bridge")
	assert.Error(t, err)
}

func TestReason_TextRoundTrip(t *testing.T) {
	t.Parallel()

	for _, r := range []Reason{ReasonLowestLatencyRelay, ReasonRelayUnavailableFallbackExit} {
		text, err := r.MarshalText()
		require.NoError(t, err)

		var back Reason
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, r, back)
	}
	assert.Equal(t, "lowest-latency-relay", ReasonLowestLatencyRelay.String())
	assert.Equal(t, "relay-unavailable-fallback-exit", ReasonRelayUnavailableFallbackExit.String())

	_, err := Reason(0).MarshalText()
	assert.Error(t, err)
	_, err = ParseReason("fastest")
	assert.Error(t, err)
}
