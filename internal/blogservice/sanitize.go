package blogservice

import "github.com/microcosm-cc/bluemonday"

// textPolicy keeps the inline markup an editor produces and drops scripts,
// event handlers and javascript: URLs.
var textPolicy = bluemonday.UGCPolicy()

// textBlocks are the block types whose text is rendered as HTML.
var textBlocks = map[string]bool{
	"paragraph": true,
	"header":    true,
	"list":      true,
	"quote":     true,
}

func sanitizeHTML(s string) string {
	return textPolicy.Sanitize(s)
}

// sanitizeContent cleans every string in text blocks, including nested list
// items.
func sanitizeContent(c *Content) {
	for i := range c.Blocks {
		if !textBlocks[c.Blocks[i].Type] {
			continue
		}
		for k, v := range c.Blocks[i].Data.Fields {
			c.Blocks[i].Data.Fields[k] = sanitizeValue(v)
		}
	}
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return sanitizeHTML(t)
	case []any:
		for i := range t {
			t[i] = sanitizeValue(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = sanitizeValue(t[k])
		}
		return t
	default:
		return v
	}
}
