package blogservice

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	slugStripRX      = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	slugWhitespaceRX = regexp.MustCompile(`\s+`)
	slugDashRX       = regexp.MustCompile(`-+`)
)

func slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStripRX.ReplaceAllString(s, "")
	s = slugWhitespaceRX.ReplaceAllString(s, "-")
	return slugDashRX.ReplaceAllString(s, "-")
}

// newSlug appends the first 7 characters of a random UUID to the slugified title.
func newSlug(title string) string {
	return slugify(title) + "-" + uuid.NewString()[:7]
}
