package health

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"golddust/internal/config"
	"golddust/internal/metrics"
	"golddust/internal/router"
)

// CSV overlays windowed sample summaries on the configured backends.
// Identity, kind and the enabled flag always come from config.
type CSV struct {
	Backends config.BackendConfig
	Path     string
	Window   time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

func (c *CSV) Name() string { return config.SourceCSV }

func (c *CSV) Snapshots(ctx context.Context) (router.SnapshotSet, error) {
	logger := c.logger()

	samples, err := metrics.ReadCSV(c.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return router.SnapshotSet{}, fmt.Errorf("read samples %s: %w", c.Path, err)
	}
	if err != nil {
		logger.Warn("sample file missing, using configured health", "path", c.Path)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	summaries := metrics.Summarize(samples, now().Add(-c.Window))

	known := make(map[string]struct{}, len(c.Backends.Nodes))
	snaps := make([]router.Snapshot, 0, len(c.Backends.Nodes))
	for _, n := range c.Backends.Nodes {
		s, err := c.Backends.Snapshot(n)
		if err != nil {
			return router.SnapshotSet{}, err
		}
		if sum, ok := summaries[n.ID]; ok {
			s.LatencyMs = sum.AvgLatencyMs
			s.FailureRate = sum.FailureRate
		}
		known[n.ID] = struct{}{}
		snaps = append(snaps, s)
	}

	for _, id := range metrics.SortedIDs(summaries) {
		if _, ok := known[id]; !ok {
			logger.Debug("ignoring samples for unknown backend", "backend_id", id)
		}
	}

	return router.NewSnapshotSet(snaps...)
}

func (c *CSV) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
