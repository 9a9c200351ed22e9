package validation

import (
	"regexp"
	"strings"
)

var (
	slugStripRegex    = regexp.MustCompile(`[^a-z0-9]+`)
	slugCollapseRegex = regexp.MustCompile(`-{2,}`)
)

const maxSlugLen = 80

// Slugify derives a URL-safe slug base from a title: lowercase, runs of
// non-alphanumeric characters become single hyphens, trimmed to a bounded
// length. Falls back to "post" when nothing survives.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStripRegex.ReplaceAllString(s, "-")
	s = slugCollapseRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "-")
	}
	if s == "" {
		return "post"
	}
	return s
}
