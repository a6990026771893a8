// Package fetcher retrieves pages whose links are to be scanned or rewritten.
// Implement the Fetcher interface to plug in other retrieval strategies.
package fetcher

import (
	"context"
	"errors"
	"time"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves page content from a URL.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type ("static", "dynamic").
	Type() string
}

// Options controls a single fetch. Zero values fall back to the fetcher's
// configuration.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	WaitForSelector string        // dynamic only
	WaitDuration    time.Duration // dynamic only, extra wait after load
	Headers         map[string]string
}

// Content is a fetched page.
type Content struct {
	URL         string    `json:"url" yaml:"url"`
	HTML        string    `json:"-" yaml:"-"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	StatusCode  int       `json:"statusCode" yaml:"status_code"`
	ContentType string    `json:"contentType,omitempty" yaml:"content_type,omitempty"`
	FetchedAt   time.Time `json:"fetchedAt" yaml:"fetched_at"`
}

var (
	// ErrNotHTML is returned when the response is not an HTML document.
	ErrNotHTML = errors.New("response is not HTML")
	// ErrUnsupportedScheme is returned for URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("only http and https URLs can be fetched")
)

// New returns the fetcher for mode ("static" or "dynamic").
func New(mode string, userAgent string, timeout time.Duration) (Fetcher, error) {
	switch mode {
	case "", "static":
		return NewStatic(StaticConfig{UserAgent: userAgent, Timeout: timeout}), nil
	case "dynamic":
		return NewDynamic(DynamicConfig{UserAgent: userAgent, Timeout: timeout})
	default:
		return nil, errors.New("unknown fetch mode: " + mode)
	}
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
