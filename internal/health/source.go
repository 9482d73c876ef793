package health

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golddust/internal/config"
	"golddust/internal/router"
)

//go:generate mockgen -destination=mocks/source.go -package=mocks golddust/internal/health Source

// Source supplies the backend health snapshots the router decides on.
type Source interface {
	Snapshots(ctx context.Context) (router.SnapshotSet, error)
	Name() string
}

// FromConfig builds the source selected by health.source.
func FromConfig(cfg config.Config, logger *slog.Logger) (Source, error) {
	switch cfg.Health.Source {
	case config.SourceStatic, "":
		return NewStatic(cfg.Backends), nil
	case config.SourceCSV:
		return &CSV{
			Backends: cfg.Backends,
			Path:     cfg.Health.CSVPath,
			Window:   cfg.Health.Window.Std(),
			Logger:   logger,
		}, nil
	case config.SourceFile:
		return &File{Path: cfg.Health.FilePath}, nil
	case config.SourceRedis:
		return NewRedis(cfg.Health.RedisAddr, cfg.Health.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown health source %q", cfg.Health.Source)
	}
}

// Close releases src when it holds resources.
func Close(src Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
