package mailservice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
)

//go:embed templates/*.html
var templateFS embed.FS

// Each mail template defines these three blocks.
var templateBlocks = [...]string{"subject", "plainBody", "htmlBody"}

// Rendered is a mail template executed against its data.
type Rendered struct {
	Subject string
	Plain   string
	HTML    string
}

// NewTemplate parses every embedded mail template, keyed by file name.
func NewTemplate() (*Template, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	set := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := path.Base(file)
		t, err := template.New(name).ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("could not parse template %s: %w", name, err)
		}
		for _, block := range templateBlocks {
			if t.Lookup(block) == nil {
				return nil, fmt.Errorf("template %s does not define %q", name, block)
			}
		}
		set[name] = t
	}

	return &Template{set: set}, nil
}

// Render executes the named template. data is whatever the template expects,
// activationData for the activation mail.
func (tp *Template) Render(name string, data any) (*Rendered, error) {
	t, ok := tp.set[name]
	if !ok {
		return nil, fmt.Errorf("unknown mail template %q", name)
	}

	var out [len(templateBlocks)]string
	for i, block := range templateBlocks {
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, block, data); err != nil {
			return nil, fmt.Errorf("could not render %s of %s: %w", block, name, err)
		}
		out[i] = buf.String()
	}

	return &Rendered{Subject: out[0], Plain: out[1], HTML: out[2]}, nil
}
