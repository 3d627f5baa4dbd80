// ABOUTME: Embedded static web assets: landing page and informational pages
// ABOUTME: Markdown pages are rendered to HTML via goldmark inside a shared shell template

package assets

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/yuin/goldmark"
)

//go:embed web
var webFS embed.FS

// pageShell wraps rendered markdown in the informational-page layout.
var pageShell = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #464775; }
    </style>
</head>
<body>
{{.Content}}
</body>
</html>
`))

// IndexHTML returns the embedded chat landing page.
func IndexHTML() ([]byte, error) {
	return fs.ReadFile(webFS, "web/index.html")
}

// Page renders the named embedded markdown page (e.g. "privacy", "terms")
// into the informational-page shell.
func Page(name, title string) ([]byte, error) {
	md, err := fs.ReadFile(webFS, "web/"+name+".md")
	if err != nil {
		return nil, fmt.Errorf("reading page %q: %w", name, err)
	}

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert(md, &htmlBuf); err != nil {
		return nil, fmt.Errorf("rendering page %q: %w", name, err)
	}

	var out bytes.Buffer
	data := struct {
		Title   string
		Content template.HTML
	}{
		Title:   title,
		Content: template.HTML(htmlBuf.String()),
	}
	if err := pageShell.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("executing page shell for %q: %w", name, err)
	}
	return out.Bytes(), nil
}
