package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(id string, kind Kind, enabled bool, latency, failure float64) Snapshot {
	return Snapshot{ID: id, Kind: kind, Enabled: enabled, LatencyMs: latency, FailureRate: failure}
}

func mustSet(t *testing.T, snaps ...Snapshot) SnapshotSet {
	t.Helper()
	set, err := NewSnapshotSet(snaps...)
	require.NoError(t, err)
	return set
}

func TestDecide_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		snaps  []Snapshot
		want   Decision
		wantEr error
	}{
		{
			name: "relay tier wins over faster exit",
			snaps: []Snapshot{
				snap("R1", KindRelay, true, 80, 0.01),
				snap("R2", KindRelay, true, 50, 0.02),
				snap("E1", KindExit, true, 10, 0),
			},
			want: Decision{BackendID: "R2", Kind: KindRelay, Reason: ReasonLowestLatencyRelay},
		},
		{
			name: "all relays disabled falls back to exit",
			snaps: []Snapshot{
				snap("R1", KindRelay, false, 5, 0),
				snap("R2", KindRelay, false, 5, 0),
				snap("E1", KindExit, true, 30, 0.05),
			},
			want: Decision{BackendID: "E1", Kind: KindExit, Reason: ReasonRelayUnavailableFallbackExit},
		},
		{
			name: "everything disabled",
			snaps: []Snapshot{
				snap("R1", KindRelay, false, 5, 0),
				snap("E1", KindExit, false, 5, 0),
			},
			wantEr: ErrNoBackendsAvailable,
		},
		{
			name:   "empty set",
			wantEr: ErrNoBackendsAvailable,
		},
		{
			name: "failure rate breaks latency tie",
			snaps: []Snapshot{
				snap("R1", KindRelay, true, 40, 0.10),
				snap("R2", KindRelay, true, 40, 0.02),
			},
			want: Decision{BackendID: "R2", Kind: KindRelay, Reason: ReasonLowestLatencyRelay},
		},
		{
			name: "id breaks full tie",
			snaps: []Snapshot{
				snap("relay-b", KindRelay, true, 40, 0.02),
				snap("relay-a", KindRelay, true, 40, 0.02),
				snap("relay-c", KindRelay, true, 40, 0.02),
			},
			want: Decision{BackendID: "relay-a", Kind: KindRelay, Reason: ReasonLowestLatencyRelay},
		},
		{
			name: "relay beats exit at equal latency",
			snaps: []Snapshot{
				snap("E1", KindExit, true, 40, 0),
				snap("R1", KindRelay, true, 40, 0.5),
			},
			want: Decision{BackendID: "R1", Kind: KindRelay, Reason: ReasonLowestLatencyRelay},
		},
		{
			name: "exit tie-break mirrors relay tier",
			snaps: []Snapshot{
				snap("E2", KindExit, true, 30, 0.01),
				snap("E1", KindExit, true, 30, 0.01),
				snap("E3", KindExit, true, 30, 0.001),
			},
			want: Decision{BackendID: "E3", Kind: KindExit, Reason: ReasonRelayUnavailableFallbackExit},
		},
		{
			name: "disabled backend with best metrics is ignored",
			snaps: []Snapshot{
				snap("R0", KindRelay, false, 0, 0),
				snap("R1", KindRelay, true, 90, 0.2),
			},
			want: Decision{BackendID: "R1", Kind: KindRelay, Reason: ReasonLowestLatencyRelay},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decide(mustSet(t, tc.snaps...))
			if tc.wantEr != nil {
				require.ErrorIs(t, err, tc.wantEr)
				assert.Equal(t, Decision{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecide_Idempotent(t *testing.T) {
	t.Parallel()

	set := mustSet(t,
		snap("R1", KindRelay, true, 40, 0.02),
		snap("R2", KindRelay, true, 40, 0.02),
		snap("E1", KindExit, true, 1, 0),
	)
	before := set.All()

	first, err := Decide(set)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Decide(set)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	assert.Equal(t, before, set.All(), "input mutated")
}

func TestDecide_TieBreakIgnoresInputOrder(t *testing.T) {
	t.Parallel()

	a := snap("a", KindRelay, true, 10, 0.1)
	b := snap("b", KindRelay, true, 10, 0.1)

	d1, err := Decide(mustSet(t, a, b))
	require.NoError(t, err)
	d2, err := Decide(mustSet(t, b, a))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Equal(t, "a", d1.BackendID)
}

func TestCandidates_PreferenceOrder(t *testing.T) {
	t.Parallel()

	set := mustSet(t,
		snap("E1", KindExit, true, 5, 0),
		snap("R2", KindRelay, true, 70, 0.04),
		snap("R1", KindRelay, true, 55, 0.02),
		snap("R3", KindRelay, false, 1, 0),
		snap("E2", KindExit, true, 5, 0.1),
	)

	var ids []string
	for _, s := range Candidates(set) {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"R1", "R2", "E1", "E2"}, ids)

	d, err := Decide(set)
	require.NoError(t, err)
	assert.Equal(t, ids[0], d.BackendID)
}

func TestCandidates_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Candidates(mustSet(t, snap("R1", KindRelay, false, 1, 0))))
}
