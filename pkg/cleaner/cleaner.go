// Package cleaner strips tracking query parameters from URLs.
//
// The core is a pure function of (URL, Config) to Result. It has no I/O and
// no shared mutable state, so a Cleaner may be used from any number of
// goroutines.
package cleaner

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/jmylchreest/cleanlink/internal/logger"
	"github.com/jmylchreest/cleanlink/pkg/params"
)

// ErrInvalidURL is returned by CleanStrict when the input is not an
// absolute URL.
var ErrInvalidURL = errors.New("invalid url")

// Result is the outcome of cleaning one URL.
type Result struct {
	// Original is the input exactly as given.
	Original string `json:"original" yaml:"original"`

	// URL is the cleaned URL. On invalid input it equals Original.
	URL string `json:"url" yaml:"url"`

	// RemovedCount is the number of distinct parameter names removed.
	RemovedCount int `json:"removedCount" yaml:"removed_count"`

	// Removed lists the removed parameter names in removal order.
	Removed []string `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// Changed reports whether cleaning altered the URL.
func (r Result) Changed() bool {
	return r.RemovedCount > 0
}

// Cleaner removes a fixed set of parameters plus every utm_* parameter.
// It is immutable once built.
type Cleaner struct {
	remove map[string]struct{}
}

// New builds a Cleaner from the union of the enabled categories and the
// custom parameters. Unknown category names contribute nothing.
func New(cfg Config) *Cleaner {
	remove := make(map[string]struct{})
	for _, name := range cfg.EnabledCategories {
		params.Each(name, func(p string) {
			remove[p] = struct{}{}
		})
	}
	for _, p := range cfg.CustomParams {
		remove[p] = struct{}{}
	}
	return &Cleaner{remove: remove}
}

// Clean is shorthand for New(cfg).Clean(rawURL).
func Clean(rawURL string, cfg Config) Result {
	return New(cfg).Clean(rawURL)
}

// Clean strips tracking parameters from rawURL. It never fails: input that
// is not an absolute URL is returned unchanged with a zero count.
func (c *Cleaner) Clean(rawURL string) Result {
	res, err := c.CleanStrict(rawURL)
	if err != nil {
		logger.Debug("url left unchanged", "url", rawURL, "error", err)
		return Result{Original: rawURL, URL: rawURL}
	}
	return res
}

// CleanStrict is like Clean but reports ErrInvalidURL instead of degrading.
func (c *Cleaner) CleanStrict(rawURL string) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return Result{}, fmt.Errorf("%w: %q has no scheme", ErrInvalidURL, rawURL)
	}

	res := Result{Original: rawURL}
	fields := splitQuery(u.RawQuery)
	dropped := make(map[string]bool)

	// Listed parameters: exact, case-sensitive match.
	for _, f := range fields {
		if dropped[f.key] {
			continue
		}
		if _, ok := c.remove[f.key]; ok {
			dropped[f.key] = true
			res.Removed = append(res.Removed, f.key)
		}
	}

	// Any utm_* parameter, whatever its case.
	for _, f := range fields {
		if dropped[f.key] {
			continue
		}
		if strings.HasPrefix(strings.ToLower(f.key), params.UTMPrefix) {
			dropped[f.key] = true
			res.Removed = append(res.Removed, f.key)
		}
	}

	res.RemovedCount = len(res.Removed)
	if res.RemovedCount > 0 {
		kept := make([]string, 0, len(fields))
		for _, f := range fields {
			if !dropped[f.key] && f.raw != "" {
				kept = append(kept, f.raw)
			}
		}
		u.RawQuery = strings.Join(kept, "&")
	}
	u.ForceQuery = false

	// Web URLs always serialize with at least a root path.
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" && u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}

	res.URL = u.String()
	return res, nil
}

// Removes reports whether name is in the cleaner's explicit removal set.
// It does not consider the utm_ prefix rule.
func (c *Cleaner) Removes(name string) bool {
	_, ok := c.remove[name]
	return ok
}

// Params returns the explicit removal set, sorted.
func (c *Cleaner) Params() []string {
	out := make([]string, 0, len(c.remove))
	for p := range c.remove {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// field is one raw "key=value" segment of a query and its decoded key.
type field struct {
	raw string
	key string
}

// splitQuery splits a raw query on '&' without re-encoding anything, so
// surviving pairs are written back byte for byte.
func splitQuery(rawQuery string) []field {
	if rawQuery == "" {
		return nil
	}
	segments := strings.Split(rawQuery, "&")
	fields := make([]field, 0, len(segments))
	for _, seg := range segments {
		key := seg
		if i := strings.IndexByte(seg, '='); i >= 0 {
			key = seg[:i]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		fields = append(fields, field{raw: seg, key: key})
	}
	return fields
}
