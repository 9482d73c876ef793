package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"golddust/internal/router"
)

// SnapshotFile is the on-disk health document shared with external health checkers.
type SnapshotFile struct {
	UpdatedAt time.Time     `yaml:"updated_at"`
	Backends  []BackendInfo `yaml:"backends"`
}

// BackendInfo is the persisted form of one router.Snapshot.
type BackendInfo struct {
	ID          string  `yaml:"id"`
	Kind        string  `yaml:"kind"`
	Enabled     bool    `yaml:"enabled"`
	LatencyMs   float64 `yaml:"latency_ms"`
	FailureRate float64 `yaml:"failure_rate"`
}

// LoadSnapshotFile reads a snapshot document. Unlike the config, a missing file is an error:
// an absent health feed must not look like an empty backend list.
func LoadSnapshotFile(path string) (*SnapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc SnapshotFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

// SaveSnapshotFile writes the document to disk, stamping UpdatedAt.
func SaveSnapshotFile(path string, doc *SnapshotFile) error {
	if doc == nil {
		return nil
	}
	doc.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// FromSet converts a snapshot set into its persisted form, ordered by kind then id.
func FromSet(set router.SnapshotSet) *SnapshotFile {
	doc := &SnapshotFile{}
	for _, s := range set.Sorted() {
		doc.Backends = append(doc.Backends, BackendInfo{
			ID:          s.ID,
			Kind:        s.Kind.String(),
			Enabled:     s.Enabled,
			LatencyMs:   s.LatencyMs,
			FailureRate: s.FailureRate,
		})
	}
	return doc
}

// Set validates the document and builds a snapshot set from it.
func (doc *SnapshotFile) Set() (router.SnapshotSet, error) {
	if doc == nil {
		return router.NewSnapshotSet()
	}
	snaps := make([]router.Snapshot, 0, len(doc.Backends))
	for _, b := range doc.Backends {
		kind, err := router.ParseKind(b.Kind)
		if err != nil {
			return router.SnapshotSet{}, fmt.Errorf("backend %q: %w", b.ID, err)
		}
		s, err := router.NewSnapshot(b.ID, kind, b.Enabled, b.LatencyMs, b.FailureRate)
		if err != nil {
			return router.SnapshotSet{}, err
		}
		snaps = append(snaps, s)
	}
	return router.NewSnapshotSet(snaps...)
}
