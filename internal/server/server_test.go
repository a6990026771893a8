package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jmylchreest/cleanlink/pkg/cleaner"
	"github.com/jmylchreest/cleanlink/pkg/settings"
)

func newTestServer(t *testing.T) (*Server, settings.Store) {
	t.Helper()
	store := settings.NewMemoryStore()
	return New(settings.NewManager(store)), store
}

// do sends a request through the app and decodes the JSON response into out
// when out is non-nil.
func do(t *testing.T, s *Server, method, target, body string, out any) int {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, target, data, err)
		}
	}
	return resp.StatusCode
}

// --- Health and Categories Tests ---

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	var got healthResponse
	if code := do(t, s, http.MethodGet, "/healthz", "", &got); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if got.Status != "ok" || got.Version == "" {
		t.Errorf("health = %+v", got)
	}
}

func TestCategories(t *testing.T) {
	s, store := newTestServer(t)
	_ = store.Save(context.Background(), settings.Settings{EnabledCategories: []string{"google"}})

	var got []categoryView
	if code := do(t, s, http.MethodGet, "/v1/categories", "", &got); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 categories, got %d", len(got))
	}
	if got[0].Name != "google" || !got[0].Enabled || len(got[0].Params) != 12 {
		t.Errorf("first category = %+v", got[0])
	}
	if got[1].Enabled {
		t.Errorf("%s should be disabled", got[1].Name)
	}
}

// --- Clean and Preview Tests ---

func TestClean_SingleRecordsStats(t *testing.T) {
	s, store := newTestServer(t)

	var got cleanResponse
	code := do(t, s, http.MethodPost, "/v1/clean",
		`{"url":"https://example.com/p?id=1&utm_source=x&fbclid=y"}`, &got)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(got.Results) != 1 || got.Results[0].URL != "https://example.com/p?id=1" {
		t.Errorf("results = %+v", got.Results)
	}
	if got.RemovedCount != 2 {
		t.Errorf("RemovedCount = %d", got.RemovedCount)
	}

	current, _ := store.Load(context.Background())
	if current.Stats.CleanedCount != 1 || current.Stats.ParamsRemoved != 2 {
		t.Errorf("Stats = %+v", current.Stats)
	}
}

func TestClean_Batch(t *testing.T) {
	s, _ := newTestServer(t)

	var got cleanResponse
	code := do(t, s, http.MethodPost, "/v1/clean",
		`{"urls":["https://a.example.com/?gclid=1","not a url"]}`, &got)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(got.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got.Results))
	}
	if got.Results[1].URL != "not a url" || got.Results[1].RemovedCount != 0 {
		t.Errorf("invalid URL result = %+v", got.Results[1])
	}
}

func TestClean_BadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty_object", `{}`},
		{"malformed", `{"url":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got errorResponse
			if code := do(t, s, http.MethodPost, "/v1/clean", tt.body, &got); code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", code)
			}
			if got.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestClean_KeepsAmpersandUnescaped(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/clean",
		strings.NewReader(`{"url":"https://example.com/?a=1&b=2&gclid=3"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "?a=1&b=2") {
		t.Errorf("response escaped the query: %s", body)
	}
}

func TestPreview_DoesNotRecord(t *testing.T) {
	s, store := newTestServer(t)

	target := "/v1/preview?url=" + url.QueryEscape("https://example.com/?msclkid=1")
	var got cleaner.Result
	if code := do(t, s, http.MethodGet, target, "", &got); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if got.URL != "https://example.com/" || got.RemovedCount != 1 {
		t.Errorf("preview = %+v", got)
	}

	current, _ := store.Load(context.Background())
	if current.Stats != (settings.Stats{}) {
		t.Errorf("preview recorded stats: %+v", current.Stats)
	}
}

func TestPreview_MissingURL(t *testing.T) {
	s, _ := newTestServer(t)
	if code := do(t, s, http.MethodGet, "/v1/preview", "", nil); code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

// --- Settings Tests ---

func TestSettings_CategoryToggle(t *testing.T) {
	s, _ := newTestServer(t)

	var got settings.Settings
	if code := do(t, s, http.MethodDelete, "/v1/settings/categories/amazon", "", &got); code != http.StatusOK {
		t.Fatalf("disable status = %d", code)
	}
	if got.IsEnabled("amazon") {
		t.Error("amazon still enabled")
	}

	// Cleaning follows the new settings immediately.
	var preview cleaner.Result
	do(t, s, http.MethodGet, "/v1/preview?url="+url.QueryEscape("https://example.com/?ref=x"), "", &preview)
	if preview.RemovedCount != 0 {
		t.Errorf("ref removed with amazon disabled: %+v", preview)
	}

	if code := do(t, s, http.MethodPut, "/v1/settings/categories/amazon", "", &got); code != http.StatusOK {
		t.Fatalf("enable status = %d", code)
	}
	if !got.IsEnabled("amazon") {
		t.Error("amazon not re-enabled")
	}
}

func TestSettings_UnknownCategory(t *testing.T) {
	s, _ := newTestServer(t)

	var got errorResponse
	if code := do(t, s, http.MethodPut, "/v1/settings/categories/yahoo", "", &got); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
	if !strings.Contains(got.Error, "unknown category") {
		t.Errorf("error = %q", got.Error)
	}
}

func TestSettings_CustomParams(t *testing.T) {
	s, _ := newTestServer(t)

	var added paramResponse
	if code := do(t, s, http.MethodPost, "/v1/settings/params", `{"param":"  sid2  "}`, &added); code != http.StatusCreated {
		t.Fatalf("add status = %d, want 201", code)
	}
	if !added.Added || len(added.Settings.CustomParams) != 1 || added.Settings.CustomParams[0] != "sid2" {
		t.Errorf("add response = %+v", added)
	}

	var dup paramResponse
	if code := do(t, s, http.MethodPost, "/v1/settings/params", `{"param":"sid2"}`, &dup); code != http.StatusOK {
		t.Errorf("duplicate status = %d, want 200", code)
	}
	if dup.Added {
		t.Error("duplicate reported as added")
	}

	if code := do(t, s, http.MethodPost, "/v1/settings/params", `{"param":"   "}`, nil); code != http.StatusBadRequest {
		t.Errorf("blank status = %d, want 400", code)
	}
	if code := do(t, s, http.MethodPost, "/v1/settings/params", `{"param":"a=b"}`, nil); code != http.StatusBadRequest {
		t.Errorf("invalid status = %d, want 400", code)
	}

	var after settings.Settings
	if code := do(t, s, http.MethodDelete, "/v1/settings/params/sid2", "", &after); code != http.StatusOK {
		t.Fatalf("remove status = %d", code)
	}
	if len(after.CustomParams) != 0 {
		t.Errorf("CustomParams = %v", after.CustomParams)
	}
	if code := do(t, s, http.MethodDelete, "/v1/settings/params/sid2", "", nil); code != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", code)
	}
}

func TestSettings_ResetAndStats(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	_ = store.Save(ctx, settings.Settings{
		EnabledCategories: []string{},
		CustomParams:      []string{"x"},
		Stats:             settings.Stats{CleanedCount: 5, ParamsRemoved: 8},
	})

	var stats settings.Stats
	if code := do(t, s, http.MethodGet, "/v1/stats", "", &stats); code != http.StatusOK {
		t.Fatalf("stats status = %d", code)
	}
	if stats.CleanedCount != 5 || stats.ParamsRemoved != 8 {
		t.Errorf("stats = %+v", stats)
	}

	var got settings.Settings
	if code := do(t, s, http.MethodPost, "/v1/settings/reset", "", &got); code != http.StatusOK {
		t.Fatalf("reset status = %d", code)
	}
	if len(got.EnabledCategories) != 7 || len(got.CustomParams) != 0 || got.Stats != (settings.Stats{}) {
		t.Errorf("after reset = %+v", got)
	}

	var shown settings.Settings
	do(t, s, http.MethodGet, "/v1/settings", "", &shown)
	if len(shown.EnabledCategories) != 7 {
		t.Errorf("GET /v1/settings = %+v", shown)
	}
}

func TestNotFoundRoute(t *testing.T) {
	s, _ := newTestServer(t)

	var got errorResponse
	if code := do(t, s, http.MethodGet, "/v2/nothing", "", &got); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}
