package settings

import (
	"context"
	"sync"

	"github.com/jmylchreest/cleanlink/internal/logger"
	"github.com/jmylchreest/cleanlink/pkg/cleaner"
)

// Manager caches the settings from a Store and applies them to URLs.
//
// The cleaner core never reads settings itself; the Manager loads them once,
// builds a Cleaner, and reuses both until the settings change through
// Update or the cache is invalidated (for example by a file watcher).
type Manager struct {
	store Store

	mu      sync.RWMutex
	gen     uint64 // bumped by every Update and Invalidate
	cached  *Settings
	cleaner *cleaner.Cleaner
}

// NewManager wraps store. The Manager does not own the store; Close it
// separately.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Settings returns the cached settings, loading them on first use.
func (m *Manager) Settings(ctx context.Context) (Settings, error) {
	s, _, err := m.load(ctx)
	return s, err
}

// Update changes the stored settings through fn and refreshes the cache.
// If another Update or an Invalidate lands while this one is in flight, the
// cache is dropped instead, since the order of the two writes is unknown.
func (m *Manager) Update(ctx context.Context, fn func(*Settings) error) (Settings, error) {
	gen := m.generation()
	s, err := m.store.Update(ctx, fn)
	if err != nil {
		return Settings{}, err
	}

	c := cleaner.New(s.Config())
	stored := s.Clone()

	m.mu.Lock()
	if m.gen == gen {
		m.cached, m.cleaner = &stored, c
	} else {
		m.cached, m.cleaner = nil, nil
	}
	m.gen++
	m.mu.Unlock()

	return s.Clone(), nil
}

// Invalidate drops the cache so the next read goes to the store.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.cleaner = nil
	m.gen++
	m.mu.Unlock()
	logger.Debug("settings cache invalidated")
}

// Preview cleans rawURL with the current settings without counting it.
func (m *Manager) Preview(ctx context.Context, rawURL string) (cleaner.Result, error) {
	_, c, err := m.load(ctx)
	if err != nil {
		return cleaner.Result{}, err
	}
	return c.Clean(rawURL), nil
}

// Clean cleans rawURL and records it as one user-triggered cleaning.
func (m *Manager) Clean(ctx context.Context, rawURL string) (cleaner.Result, error) {
	results, err := m.CleanAll(ctx, []string{rawURL})
	if err != nil {
		return cleaner.Result{}, err
	}
	return results[0], nil
}

// CleanAll cleans each URL and records all of them in a single stats update.
func (m *Manager) CleanAll(ctx context.Context, rawURLs []string) ([]cleaner.Result, error) {
	_, c, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]cleaner.Result, len(rawURLs))
	for i, u := range rawURLs {
		results[i] = c.Clean(u)
	}

	if err := m.Record(ctx, results...); err != nil {
		return nil, err
	}
	return results, nil
}

// Record adds already-produced results to the usage counters.
func (m *Manager) Record(ctx context.Context, results ...cleaner.Result) error {
	if len(results) == 0 {
		return nil
	}
	_, err := m.Update(ctx, func(s *Settings) error {
		for _, r := range results {
			s.RecordCleaning(r.RemovedCount)
		}
		return nil
	})
	return err
}

// Cleaner returns a Cleaner for the current settings.
func (m *Manager) Cleaner(ctx context.Context) (*cleaner.Cleaner, error) {
	_, c, err := m.load(ctx)
	return c, err
}

func (m *Manager) load(ctx context.Context) (Settings, *cleaner.Cleaner, error) {
	m.mu.RLock()
	if m.cached != nil {
		s, c := m.cached.Clone(), m.cleaner
		m.mu.RUnlock()
		return s, c, nil
	}
	gen := m.gen
	m.mu.RUnlock()

	s, err := m.store.Load(ctx)
	if err != nil {
		return Settings{}, nil, err
	}
	c := cleaner.New(s.Config())

	// A read overtaken by an Update or Invalidate is served but not cached.
	stored := s.Clone()
	m.mu.Lock()
	if m.gen == gen {
		m.cached, m.cleaner = &stored, c
	} else {
		logger.Debug("settings changed during load, not caching")
	}
	m.mu.Unlock()

	return s.Clone(), c, nil
}

func (m *Manager) generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}
