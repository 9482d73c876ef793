package health

import (
	"context"

	"golddust/internal/config"
	"golddust/internal/router"
)

// Static serves the health values written in the config.
type Static struct {
	backends config.BackendConfig
}

func NewStatic(backends config.BackendConfig) *Static {
	return &Static{backends: backends}
}

func (s *Static) Name() string { return config.SourceStatic }

func (s *Static) Snapshots(ctx context.Context) (router.SnapshotSet, error) {
	return s.backends.Snapshots()
}
