package settings

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/cleanlink/internal/logger"
)

// Watch calls onChange whenever the file at path is written, created,
// replaced or removed, until ctx is done. The parent directory is watched
// rather than the file itself so that rename-based saves (editors, FileStore)
// are still seen.
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close() //nolint:errcheck
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close() //nolint:errcheck
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	go watchLoop(ctx, watcher, abs, onChange)
	logger.Debug("watching settings file", "path", abs)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, onChange func()) {
	defer watcher.Close() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				logger.Debug("settings file changed", "path", path, "op", event.Op.String())
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("settings watcher error", "error", err)
		}
	}
}

// Watch invalidates the manager's cache whenever the settings file changes,
// so edits made by another process or by hand take effect without a restart.
func (m *Manager) Watch(ctx context.Context, path string) error {
	return Watch(ctx, path, m.Invalidate)
}

// Follow invalidates the manager's cache whenever its store reports a
// change, if the store is a Notifier. It reports whether changes are
// followed.
func (m *Manager) Follow(ctx context.Context) (bool, error) {
	n, ok := m.store.(Notifier)
	if !ok {
		return false, nil
	}
	if err := n.Notify(ctx, m.Invalidate); err != nil {
		return false, err
	}
	return true, nil
}
