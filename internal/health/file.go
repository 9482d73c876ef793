package health

import (
	"context"

	"golddust/internal/config"
	"golddust/internal/router"
	"golddust/internal/store"
)

// File reads a snapshot document produced by an external health checker or `golddust export`.
type File struct {
	Path string
}

func (f *File) Name() string { return config.SourceFile }

func (f *File) Snapshots(ctx context.Context) (router.SnapshotSet, error) {
	doc, err := store.LoadSnapshotFile(f.Path)
	if err != nil {
		return router.SnapshotSet{}, err
	}
	return doc.Set()
}
