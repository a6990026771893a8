package cleaner

import (
	"mvdan.cc/xurls/v2"
)

// urlPattern matches URLs that carry a scheme. Relaxed matching would also
// pick up bare domains, which have no query worth cleaning.
var urlPattern = xurls.Strict()

// TextResult is the outcome of cleaning every URL inside a block of text.
type TextResult struct {
	Text         string   `json:"text" yaml:"text"`
	URLs         []Result `json:"urls" yaml:"urls"`
	RemovedCount int      `json:"removedCount" yaml:"removed_count"`
}

// CleanText rewrites every URL that had parameters removed and leaves
// everything else untouched. URLs are reported in order of appearance, including those that
// needed no cleaning.
func (c *Cleaner) CleanText(text string) TextResult {
	var res TextResult
	res.Text = urlPattern.ReplaceAllStringFunc(text, func(match string) string {
		r := c.Clean(match)
		res.URLs = append(res.URLs, r)
		res.RemovedCount += r.RemovedCount
		if !r.Changed() {
			return match
		}
		return r.URL
	})
	return res
}

// ExtractURLs returns the URLs found in text, in order of appearance.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}
