package settings

import (
	"context"
	"sync"
)

// Store persists Settings.
//
// Load returns Defaults-filled settings when nothing is stored yet.
// Update runs fn on the current value and saves the result atomically with
// respect to other Update calls on the same backend; if fn returns an error
// nothing is written.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	Update(ctx context.Context, fn func(*Settings) error) (Settings, error)
	Close() error
}

// Notifier is implemented by stores that can report changes made through
// any process sharing the backend. Notify calls onChange after each change
// until ctx is done.
type Notifier interface {
	Notify(ctx context.Context, onChange func()) error
}

// MemoryStore keeps settings in process memory. Useful for tests and for
// one-off CLI runs that should not touch disk.
type MemoryStore struct {
	mu   sync.Mutex
	data *Settings
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current(), nil
}

func (m *MemoryStore) Save(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := s.Clone()
	c.applyDefaults()
	m.data = &c
	return nil
}

func (m *MemoryStore) Update(_ context.Context, fn func(*Settings) error) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.current()
	if err := fn(&s); err != nil {
		return Settings{}, err
	}
	s.applyDefaults()
	stored := s.Clone()
	m.data = &stored
	return s, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// current must be called with mu held.
func (m *MemoryStore) current() Settings {
	if m.data == nil {
		return Defaults()
	}
	return m.data.Clone()
}
