package blogservice

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeHTML(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no script tag",
			input: "Hello, World!",
			want:  "Hello, World!",
		},
		{
			name:  "script tag",
			input: "<script>alert('Hello, World!');</script>",
			want:  "",
		},
		{
			name:  "multiline script",
			input: "before<script type=\"text/javascript\">\nalert(1)\n</script>after",
			want:  "beforeafter",
		},
		{
			name:  "upper case",
			input: `text <SCRIPT SRC="evil.js"></SCRIPT><b>bold</b>`,
			want:  "text <b>bold</b>",
		},
		{
			name:  "unclosed script",
			input: `<script src="https://evil.test/x.js">`,
			want:  "",
		},
		{
			name:  "event handler",
			input: `<b onclick="steal()">bold</b>`,
			want:  "<b>bold</b>",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitizeHTML(tc.input))
		})
	}
}

func TestSanitizeHTMLNestedScript(t *testing.T) {
	got := sanitizeHTML("<scr<script>x</script>ipt>alert(1)</script>")
	assert.NotContains(t, strings.ToLower(got), "<script")

	// sanitizing again finds nothing left to remove
	assert.Equal(t, got, sanitizeHTML(got))
}

func TestSanitizeContent(t *testing.T) {
	raw := `{"blocks":[
		{"type":"paragraph","data":{"text":"hi<script>x()</script>"}},
		{"type":"list","data":{"style":"ordered","items":["one<script>x()</script>",{"content":"<script>y()</script>two","items":[]}]}},
		{"type":"code","data":{"code":"<script>kept()</script>"}}
	]}`

	var c Content
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	sanitizeContent(&c)

	assert.Equal(t, "hi", c.Blocks[0].Data.Fields["text"])
	items := c.Blocks[1].Data.Fields["items"].([]any)
	assert.Equal(t, "one", items[0])
	assert.Equal(t, "two", items[1].(map[string]any)["content"])
	assert.Equal(t, "<script>kept()</script>", c.Blocks[2].Data.Fields["code"])
}
