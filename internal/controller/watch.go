package controller

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"golddust/internal/health"
)

// Loader builds a fresh source from the config file at path.
type Loader func(path string) (health.Source, error)

// WatchConfig reloads the source whenever the config file changes, until ctx is done.
// A failed reload keeps the previous source.
func (s *Server) WatchConfig(ctx context.Context, path string, load Loader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	// Editors often replace the file instead of writing it, so watch the directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			src, err := load(path)
			if err != nil {
				s.logger.Warn("config reload failed, keeping previous source", "path", path, "error", err)
				continue
			}
			s.SetSource(src)
			s.logger.Info("config reloaded", "path", path, "source", src.Name())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("config watcher error", "error", err)
		}
	}
}
