package config

import (
	"fmt"

	"golddust/internal/router"
)

// KindEnabled reports the kind-level toggle for k.
func (b BackendConfig) KindEnabled(k router.Kind) bool {
	switch k {
	case router.KindRelay:
		return b.RelayEnabled == nil || *b.RelayEnabled
	case router.KindExit:
		return b.ExitEnabled == nil || *b.ExitEnabled
	default:
		return false
	}
}

// Snapshot converts a node into a validated snapshot, honoring the kind toggle.
func (b BackendConfig) Snapshot(n Node) (router.Snapshot, error) {
	kind, err := router.ParseKind(n.Kind)
	if err != nil {
		return router.Snapshot{}, fmt.Errorf("backend %q: %w", n.ID, err)
	}
	enabled := (n.Enabled == nil || *n.Enabled) && b.KindEnabled(kind)
	return router.NewSnapshot(n.ID, kind, enabled, n.LatencyMs, n.FailureRate)
}

// Snapshots builds the snapshot set described by the configured nodes.
func (b BackendConfig) Snapshots() (router.SnapshotSet, error) {
	snaps := make([]router.Snapshot, 0, len(b.Nodes))
	for _, n := range b.Nodes {
		s, err := b.Snapshot(n)
		if err != nil {
			return router.SnapshotSet{}, err
		}
		snaps = append(snaps, s)
	}
	return router.NewSnapshotSet(snaps...)
}
