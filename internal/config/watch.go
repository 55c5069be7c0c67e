package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"verihub/internal/logging"
)

// Watch re-reads the config file whenever it changes and pushes the logging
// section to the logging package. Only the logging section is hot-reloaded;
// everything else requires a restart. Blocks until ctx is done.
func Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory rather than the file itself so editors that
	// rename-and-replace the file do not drop the watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				logging.BootError("config reload failed: %v", err)
				continue
			}
			logging.Configure(logging.Settings{
				DebugMode:  cfg.Logging.DebugMode,
				Level:      cfg.Logging.Level,
				Categories: cfg.Logging.Categories,
			})
			logging.Boot("config reloaded: %s", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.BootError("config watcher error: %v", err)
		}
	}
}
