package profile

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"osdsched/pkg/log"
)

// Watch calls onChange every time the profile at path is written or replaced,
// until ctx is done. The parent directory is watched so that editors and
// benchmark tools that replace the file by rename are noticed too.
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close profile watcher")
		}
	}()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug().Str("profile", target).Str("op", event.Op.String()).Msg("Profile changed")
			onChange()
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(watchErr).Str("profile", target).Msg("Profile watcher error")
		}
	}
}
