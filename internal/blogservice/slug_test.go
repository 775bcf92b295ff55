package blogservice

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	testCases := []struct {
		title string
		want  string
	}{
		{title: "Hello World", want: "hello-world"},
		{title: "  Go, MongoDB & You!  ", want: "go-mongodb-you"},
		{title: "a  -  b", want: "a-b"},
		{title: "Ünïcode tïtle", want: "ncode-ttle"},
		{title: "multiple\t\nspaces", want: "multiple-spaces"},
	}

	for _, tc := range testCases {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.want, slugify(tc.title))
		})
	}
}

func TestNewSlug(t *testing.T) {
	slug := newSlug("Hello World")
	assert.Regexp(t, regexp.MustCompile(`^hello-world-[0-9a-f]{7}$`), slug)
	assert.NotEqual(t, slug, newSlug("Hello World"))
}
