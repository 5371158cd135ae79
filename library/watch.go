package library

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch rescans the library whenever a pack directory is created, removed or
// renamed, passing the new pack list to onChange. It blocks until ctx is done.
func (l *Library) Watch(ctx context.Context, onChange func(packs []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", l.root, err)
	}

	l.logger.Info("Watching sound packs", slog.String("root", l.root))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Dir(event.Name) != filepath.Clean(l.root) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			l.logger.Debug("Library changed", slog.String("name", event.Name), slog.String("op", event.Op.String()))
			packs, err := l.Scan()
			if err != nil {
				l.logger.Warn("Rescan failed", slog.Any("error", err))
				continue
			}
			if onChange != nil {
				onChange(packs)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Debug("Watcher error", slog.String("root", l.root), slog.Any("error", err))
		}
	}
}
