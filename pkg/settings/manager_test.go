package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// --- Manager Tests ---

func TestManager_CleanRecordsStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)

	r, err := m.Clean(ctx, "https://example.com/?utm_source=x&fbclid=y&id=1")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if r.URL != "https://example.com/?id=1" {
		t.Errorf("Clean() URL = %q", r.URL)
	}

	got, _ := store.Load(ctx)
	if got.Stats.CleanedCount != 1 || got.Stats.ParamsRemoved != 2 {
		t.Errorf("Stats = %+v, want {1 2}", got.Stats)
	}
}

func TestManager_CleanAllSingleUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)

	results, err := m.CleanAll(ctx, []string{
		"https://example.com/?gclid=1",
		"https://example.com/plain",
		"not a url",
	})
	if err != nil {
		t.Fatalf("CleanAll() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("CleanAll() returned %d results", len(results))
	}
	if results[2].URL != "not a url" {
		t.Errorf("invalid URL should pass through, got %q", results[2].URL)
	}

	got, _ := store.Load(ctx)
	if got.Stats.CleanedCount != 3 || got.Stats.ParamsRemoved != 1 {
		t.Errorf("Stats = %+v, want {3 1}", got.Stats)
	}
}

func TestManager_PreviewDoesNotRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)

	r, err := m.Preview(ctx, "https://example.com/?fbclid=1")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if r.RemovedCount != 1 {
		t.Errorf("Preview() RemovedCount = %d", r.RemovedCount)
	}

	got, _ := store.Load(ctx)
	if got.Stats != (Stats{}) {
		t.Errorf("Preview() changed stats: %+v", got.Stats)
	}
}

func TestManager_UpdateRefreshesCleaner(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	r, _ := m.Preview(ctx, "https://example.com/?ref=a")
	if r.RemovedCount != 1 {
		t.Fatalf("ref should be removed by default, got %+v", r)
	}

	_, err := m.Update(ctx, func(s *Settings) error {
		return s.DisableCategory("amazon")
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	r, _ = m.Preview(ctx, "https://example.com/?ref=a")
	if r.RemovedCount != 0 {
		t.Errorf("ref removed after disabling amazon: %+v", r)
	}
}

func TestManager_CacheAndInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)

	if _, err := m.Settings(ctx); err != nil {
		t.Fatalf("Settings() error = %v", err)
	}

	// Change the store behind the manager's back.
	_, _ = store.Update(ctx, func(s *Settings) error {
		_, err := s.AddCustomParam("sid")
		return err
	})

	cached, _ := m.Settings(ctx)
	if len(cached.CustomParams) != 0 {
		t.Errorf("expected cached settings, got %v", cached.CustomParams)
	}

	m.Invalidate()
	fresh, _ := m.Settings(ctx)
	if len(fresh.CustomParams) != 1 || fresh.CustomParams[0] != "sid" {
		t.Errorf("expected reloaded settings, got %v", fresh.CustomParams)
	}
}

func TestManager_SettingsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	s, _ := m.Settings(ctx)
	s.EnabledCategories[0] = "changed"

	again, _ := m.Settings(ctx)
	if again.EnabledCategories[0] == "changed" {
		t.Error("Settings() exposes the cached slice")
	}
}

func TestManager_RecordNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)

	if err := m.Record(ctx); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	got, _ := store.Load(ctx)
	if got.Stats.CleanedCount != 0 {
		t.Errorf("Record() with no results counted %d", got.Stats.CleanedCount)
	}
}

// --- Watch Tests ---

func TestManager_WatchInvalidatesOnFileChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	m := NewManager(store)

	if _, err := m.Settings(ctx); err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if err := m.Watch(ctx, path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("custom_params: [sid]\n"), 0o644); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		s, err := m.Settings(ctx)
		if err == nil && len(s.CustomParams) == 1 && s.CustomParams[0] == "sid" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("manager did not pick up the edited settings file")
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	fired := make(chan struct{}, 8)
	if err := Watch(ctx, path, func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	select {
	case <-fired:
		t.Error("onChange fired for an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.yaml")
	if err := Watch(context.Background(), path, func() {}); err == nil {
		t.Error("expected error watching a missing directory")
	}
}

// slowLoadStore holds the next Load after reading until release is closed.
type slowLoadStore struct {
	*MemoryStore
	loaded  chan struct{}
	release chan struct{}
	once    bool
}

func (s *slowLoadStore) Load(ctx context.Context) (Settings, error) {
	got, err := s.MemoryStore.Load(ctx)
	if !s.once {
		s.once = true
		close(s.loaded)
		<-s.release
	}
	return got, err
}

func TestManager_UpdateDuringLoadKeepsNewSettings(t *testing.T) {
	ctx := context.Background()
	store := &slowLoadStore{
		MemoryStore: NewMemoryStore(),
		loaded:      make(chan struct{}),
		release:     make(chan struct{}),
	}
	m := NewManager(store)

	type preview struct {
		url string
		err error
	}
	done := make(chan preview, 1)
	go func() {
		r, err := m.Preview(ctx, "https://example.com/?gclid=1")
		done <- preview{r.URL, err}
	}()

	<-store.loaded
	if _, err := m.Update(ctx, func(s *Settings) error { return s.DisableCategory("google") }); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	close(store.release)

	p := <-done
	if p.err != nil {
		t.Fatalf("Preview() error = %v", p.err)
	}
	// The overtaken read still sees the settings it loaded.
	if p.url != "https://example.com/" {
		t.Errorf("Preview() URL = %q", p.url)
	}

	s, err := m.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if s.IsEnabled("google") {
		t.Error("stale settings cached after Update")
	}
	r, _ := m.Preview(ctx, "https://example.com/?gclid=1")
	if r.URL != "https://example.com/?gclid=1" {
		t.Errorf("Preview() after Update URL = %q, want gclid kept", r.URL)
	}
}

func TestManager_InvalidateDuringLoadDoesNotCache(t *testing.T) {
	ctx := context.Background()
	store := &slowLoadStore{
		MemoryStore: NewMemoryStore(),
		loaded:      make(chan struct{}),
		release:     make(chan struct{}),
	}
	m := NewManager(store)

	done := make(chan error, 1)
	go func() {
		_, err := m.Settings(ctx)
		done <- err
	}()

	<-store.loaded
	// Changed behind the manager's back, as another process would.
	if _, err := store.MemoryStore.Update(ctx, func(s *Settings) error { return s.DisableCategory("email") }); err != nil {
		t.Fatalf("store Update() error = %v", err)
	}
	m.Invalidate()
	close(store.release)

	if err := <-done; err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	s, _ := m.Settings(ctx)
	if s.IsEnabled("email") {
		t.Error("read overtaken by Invalidate was cached")
	}
}

// --- Follow Tests ---

func TestManager_FollowRedisSeesOtherProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	open := func() *RedisStore {
		s, err := NewRedisStore(ctx, "redis://"+mr.Addr(), "shared:settings")
		if err != nil {
			t.Fatalf("NewRedisStore() error = %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	}
	server, other := open(), open()

	m := NewManager(server)
	if _, err := m.Settings(ctx); err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	following, err := m.Follow(ctx)
	if err != nil || !following {
		t.Fatalf("Follow() = %v, %v; want true, nil", following, err)
	}

	if _, err := other.Update(ctx, func(s *Settings) error { return s.DisableCategory("google") }); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		s, err := m.Settings(ctx)
		if err == nil && !s.IsEnabled("google") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("manager did not pick up the change made through another store")
}

func TestManager_FollowFileStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	following, err := NewManager(store).Follow(ctx)
	if err != nil || !following {
		t.Errorf("Follow() = %v, %v; want true, nil", following, err)
	}
}

func TestManager_FollowMemoryStore(t *testing.T) {
	following, err := NewManager(NewMemoryStore()).Follow(context.Background())
	if err != nil || following {
		t.Errorf("Follow() = %v, %v; want false, nil", following, err)
	}
}
