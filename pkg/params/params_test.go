package params

import (
	"testing"
)

func TestCategories_Order(t *testing.T) {
	want := []Category{Google, Facebook, Microsoft, Social, Email, Amazon, Generic}
	got := Categories()

	if len(got) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCategories_ReturnsCopy(t *testing.T) {
	got := Categories()
	got[0] = "mutated"

	if Categories()[0] != Google {
		t.Error("mutating the returned slice changed the table order")
	}
}

func TestNames_MatchCategories(t *testing.T) {
	names := Names()
	for i, c := range Categories() {
		if names[i] != string(c) {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], c)
		}
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		category string
		wantOK   bool
		contains string
		wantLen  int
	}{
		{"google", "google", true, "gclid", 12},
		{"facebook", "facebook", true, "fbclid", 5},
		{"microsoft", "microsoft", true, "msclkid", 2},
		{"social", "social", true, "igshid", 12},
		{"email", "email", true, "_hsenc", 6},
		{"amazon", "amazon", true, "pd_rd_wg", 11},
		{"generic", "generic", true, "sr_share", 20},
		{"unknown", "yahoo", false, "", 0},
		{"case_sensitive", "Google", false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(tt.category)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.category, ok, tt.wantOK)
			}
			if len(got) != tt.wantLen {
				t.Errorf("Lookup(%q) returned %d params, want %d", tt.category, len(got), tt.wantLen)
			}
			if tt.contains == "" {
				return
			}
			found := false
			for _, p := range got {
				if p == tt.contains {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Lookup(%q) missing %q: %v", tt.category, tt.contains, got)
			}
		})
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	got, _ := Lookup("microsoft")
	got[0] = "changed"

	again, _ := Lookup("microsoft")
	if again[0] != "msclkid" {
		t.Errorf("table was mutated through Lookup result: %v", again)
	}
}

func TestIsKnown(t *testing.T) {
	for _, name := range Names() {
		if !IsKnown(name) {
			t.Errorf("IsKnown(%q) = false", name)
		}
	}
	if IsKnown("") {
		t.Error("IsKnown(\"\") = true")
	}
}

func TestEach(t *testing.T) {
	var got []string
	Each("microsoft", func(p string) { got = append(got, p) })

	if len(got) != 2 || got[0] != "msclkid" || got[1] != "ms_clkid" {
		t.Errorf("Each(microsoft) visited %v", got)
	}

	called := false
	Each("nope", func(string) { called = true })
	if called {
		t.Error("Each on unknown category should not call fn")
	}
}

func TestCategoryOf(t *testing.T) {
	c, ok := CategoryOf("fbclid")
	if !ok || c != Facebook {
		t.Errorf("CategoryOf(fbclid) = %q, %v", c, ok)
	}

	if _, ok := CategoryOf("q"); ok {
		t.Error("CategoryOf(q) should not match")
	}
}
