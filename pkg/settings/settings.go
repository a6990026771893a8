// Package settings persists the user's cleaning preferences and usage
// counters, and mediates every change to them.
//
// Settings are plain values. The mutating methods on *Settings are the only
// sanctioned way to change them; stores persist whole values and the
// Manager caches the last loaded one.
package settings

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmylchreest/cleanlink/pkg/cleaner"
	"github.com/jmylchreest/cleanlink/pkg/params"
)

var (
	// ErrUnknownCategory is returned when a category is not in the built-in table.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrEmptyParam is returned when a custom parameter is blank after trimming.
	ErrEmptyParam = errors.New("parameter name is empty")
	// ErrInvalidParam is returned for names that can never match a query key.
	ErrInvalidParam = errors.New("invalid parameter name")
)

// Stats accumulates over user-triggered cleaning actions.
type Stats struct {
	CleanedCount  int64 `json:"cleanedCount" yaml:"cleaned_count"`
	ParamsRemoved int64 `json:"paramsRemoved" yaml:"params_removed"`
}

// Settings is everything the user can configure plus the usage counters.
type Settings struct {
	EnabledCategories []string `json:"enabledCategories" yaml:"enabled_categories"`
	CustomParams      []string `json:"customParams" yaml:"custom_params"`
	Stats             Stats    `json:"stats" yaml:"stats"`
}

// Defaults enables every category, with no custom parameters and zeroed stats.
func Defaults() Settings {
	cfg := cleaner.DefaultConfig()
	return Settings{
		EnabledCategories: cfg.EnabledCategories,
		CustomParams:      cfg.CustomParams,
	}
}

// applyDefaults fills fields that were absent from storage. An explicitly
// empty list is a user choice and is kept.
func (s *Settings) applyDefaults() {
	if s.EnabledCategories == nil {
		s.EnabledCategories = params.Names()
	}
	if s.CustomParams == nil {
		s.CustomParams = []string{}
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.EnabledCategories = slices.Clone(s.EnabledCategories)
	out.CustomParams = slices.Clone(s.CustomParams)
	return out
}

// Config returns the cleaner configuration these settings describe.
func (s Settings) Config() cleaner.Config {
	c := s.Clone()
	c.applyDefaults()
	return cleaner.Config{
		EnabledCategories: c.EnabledCategories,
		CustomParams:      c.CustomParams,
	}
}

// IsEnabled reports whether a category is enabled.
func (s Settings) IsEnabled(category string) bool {
	return slices.Contains(s.EnabledCategories, category)
}

// EnableCategory turns a category on. Enabling twice is a no-op.
func (s *Settings) EnableCategory(name string) error {
	if !params.IsKnown(name) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	s.applyDefaults()
	if !slices.Contains(s.EnabledCategories, name) {
		s.EnabledCategories = append(s.EnabledCategories, name)
	}
	return nil
}

// DisableCategory turns a category off.
func (s *Settings) DisableCategory(name string) error {
	if !params.IsKnown(name) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	s.applyDefaults()
	s.EnabledCategories = slices.DeleteFunc(s.EnabledCategories, func(c string) bool {
		return c == name
	})
	return nil
}

// AddCustomParam adds a trimmed parameter name. It reports false when the
// name was already present.
func (s *Settings) AddCustomParam(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrEmptyParam
	}
	if strings.ContainsAny(name, "&=") {
		return false, fmt.Errorf("%w: %q contains '&' or '='", ErrInvalidParam, name)
	}
	s.applyDefaults()
	if slices.Contains(s.CustomParams, name) {
		return false, nil
	}
	s.CustomParams = append(s.CustomParams, name)
	return true, nil
}

// RemoveCustomParam removes a parameter name and reports whether it was present.
func (s *Settings) RemoveCustomParam(name string) bool {
	s.applyDefaults()
	before := len(s.CustomParams)
	s.CustomParams = slices.DeleteFunc(s.CustomParams, func(p string) bool {
		return p == name
	})
	return len(s.CustomParams) != before
}

// Reset restores the defaults, including the counters.
func (s *Settings) Reset() {
	*s = Defaults()
}

// RecordCleaning counts one user-triggered cleaning that removed n parameters.
func (s *Settings) RecordCleaning(removed int) {
	s.Stats.CleanedCount++
	s.Stats.ParamsRemoved += int64(removed)
}
