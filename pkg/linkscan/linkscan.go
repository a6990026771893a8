// Package linkscan finds links in HTML documents and cleans them.
package linkscan

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/cleanlink/internal/logger"
	"github.com/jmylchreest/cleanlink/pkg/cleaner"
)

// DefaultSelector matches every anchor with an href.
const DefaultSelector = "a[href]"

// Scanner extracts links from HTML content.
type Scanner struct {
	Selector string         // CSS selector for link elements
	Pattern  *regexp.Regexp // only absolute URLs matching this are kept
}

// New creates a scanner. An empty selector means DefaultSelector; an empty
// pattern matches everything.
func New(selector, pattern string) (*Scanner, error) {
	s := &Scanner{Selector: selector}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid link pattern: %w", err)
		}
		s.Pattern = re
	}
	return s, nil
}

// Extract returns the distinct absolute http(s) links in html, in document
// order. Relative links are resolved against base and fragments are dropped.
func (s *Scanner) Extract(html, base string) ([]string, error) {
	doc, baseURL, err := parse(html, base)
	if err != nil {
		return nil, err
	}

	var links []string
	seen := make(map[string]bool)

	doc.Find(s.selector()).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		link, ok := s.resolve(baseURL, href)
		if !ok {
			return
		}
		link.Fragment = ""
		full := link.String()
		if seen[full] {
			return
		}
		seen[full] = true
		links = append(links, full)
	})

	return links, nil
}

// Scan extracts links and cleans each of them with c.
func (s *Scanner) Scan(html, base string, c *cleaner.Cleaner) ([]cleaner.Result, error) {
	links, err := s.Extract(html, base)
	if err != nil {
		return nil, err
	}
	results := make([]cleaner.Result, len(links))
	for i, link := range links {
		results[i] = c.Clean(link)
	}
	return results, nil
}

// Rewrite cleans every matching href in html and returns the updated
// document with one result per rewritten link. Changed hrefs are written
// back as absolute URLs; unchanged ones are left exactly as they were.
func (s *Scanner) Rewrite(html, base string, c *cleaner.Cleaner) (string, []cleaner.Result, error) {
	doc, baseURL, err := parse(html, base)
	if err != nil {
		return "", nil, err
	}

	var rewritten []cleaner.Result
	doc.Find(s.selector()).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		link, ok := s.resolve(baseURL, href)
		if !ok {
			return
		}
		r := c.Clean(link.String())
		if !r.Changed() {
			return
		}
		sel.SetAttr("href", r.URL)
		rewritten = append(rewritten, r)
	})

	out, err := doc.Html()
	if err != nil {
		return "", nil, fmt.Errorf("failed to render document: %w", err)
	}
	logger.Debug("links rewritten", "base", base, "count", len(rewritten))
	return out, rewritten, nil
}

func (s *Scanner) selector() string {
	if s.Selector == "" {
		return DefaultSelector
	}
	return s.Selector
}

// resolve turns href into an absolute http(s) URL, or reports false for
// fragments, scripts, other schemes and pattern mismatches.
func (s *Scanner) resolve(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return nil, false
	}

	link, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	if !link.IsAbs() {
		link = base.ResolveReference(link)
	}
	if link.Scheme != "http" && link.Scheme != "https" {
		return nil, false
	}
	if s.Pattern != nil && !s.Pattern.MatchString(link.String()) {
		return nil, false
	}
	return link, true
}

func parse(html, base string) (*goquery.Document, *url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid base URL: %w", err)
	}
	return doc, baseURL, nil
}
