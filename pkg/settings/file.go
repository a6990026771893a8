package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/cleanlink/internal/logger"
)

// lockRetry is how often a contended file lock is retried.
const lockRetry = 50 * time.Millisecond

// FileStore keeps settings in a YAML file. A sibling ".lock" file
// serializes access between processes; writes go through a temp file and a
// rename so readers never see a partial document.
type FileStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path, creating its directory.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("settings file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the settings file location.
func (f *FileStore) Path() string {
	return f.path
}

// Notify watches the settings file; see Watch.
func (f *FileStore) Notify(ctx context.Context, onChange func()) error {
	return Watch(ctx, f.path, onChange)
}

func (f *FileStore) Load(ctx context.Context) (Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	locked, err := f.lock.TryRLockContext(ctx, lockRetry)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to lock settings file: %w", err)
	}
	if !locked {
		return Settings{}, fmt.Errorf("could not lock settings file %s", f.path)
	}
	defer f.lock.Unlock() //nolint:errcheck

	return f.read()
}

func (f *FileStore) Save(ctx context.Context, s Settings) error {
	_, err := f.Update(ctx, func(cur *Settings) error {
		*cur = s.Clone()
		return nil
	})
	return err
}

func (f *FileStore) Update(ctx context.Context, fn func(*Settings) error) (Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	locked, err := f.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to lock settings file: %w", err)
	}
	if !locked {
		return Settings{}, fmt.Errorf("could not lock settings file %s", f.path)
	}
	defer f.lock.Unlock() //nolint:errcheck

	s, err := f.read()
	if err != nil {
		return Settings{}, err
	}
	if err := fn(&s); err != nil {
		return Settings{}, err
	}
	s.applyDefaults()

	if err := f.write(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (f *FileStore) Close() error {
	return nil
}

// read must be called with the file lock held.
func (f *FileStore) read() (Settings, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("settings file not found, using defaults", "path", f.path)
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings file %s: %w", f.path, err)
	}
	s.applyDefaults()
	return s, nil
}

// write must be called with the file lock held.
func (f *FileStore) write(s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}

	logger.Debug("settings saved", "path", f.path)
	return nil
}
