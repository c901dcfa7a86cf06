// Package docs renders the human-readable API documentation page.
package docs

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

//go:embed page.md.tmpl
var pageSource string

// DefaultBaseURL is used in examples when the request carries no Host.
const DefaultBaseURL = "https://your-domain.example"

// Info identifies the service in the rendered page.
type Info struct {
	Service string
	Version string
	Prefix  string
}

type pageData struct {
	Info
	BaseURL string
}

// Renderer turns the embedded Markdown source into a complete HTML page.
type Renderer struct {
	info   Info
	source *texttemplate.Template
	md     goldmark.Markdown
}

// New parses the page source. Prefix is prepended to every endpoint path.
func New(info Info) (*Renderer, error) {
	src, err := texttemplate.New("docs").Parse(pageSource)
	if err != nil {
		return nil, fmt.Errorf("parse docs source: %w", err)
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	return &Renderer{info: info, source: src, md: md}, nil
}

// Render produces the page for a request made to host. An empty host falls
// back to DefaultBaseURL in the curl example.
func (r *Renderer) Render(host string) ([]byte, error) {
	base := DefaultBaseURL
	if h := strings.TrimSpace(host); h != "" {
		base = "https://" + h
	}

	var src bytes.Buffer
	if err := r.source.Execute(&src, pageData{Info: r.info, BaseURL: base}); err != nil {
		return nil, fmt.Errorf("execute docs source: %w", err)
	}

	var body bytes.Buffer
	if err := r.md.Convert(src.Bytes(), &body); err != nil {
		return nil, fmt.Errorf("render docs markdown: %w", err)
	}

	var out bytes.Buffer
	err := layout.Execute(&out, struct {
		Title string
		Body  template.HTML
		Info  Info
	}{
		Title: r.info.Service,
		Body:  template.HTML(body.String()), //nolint:gosec // rendered from the embedded source only
		Info:  r.info,
	})
	if err != nil {
		return nil, fmt.Errorf("execute docs layout: %w", err)
	}
	return out.Bytes(), nil
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; line-height: 1.6; color: #333; }
h1 { padding: 20px; border-radius: 10px; color: #fff; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); text-align: center; }
h2 { margin-top: 40px; border-bottom: 1px solid #e9ecef; }
pre { padding: 15px; border-radius: 5px; overflow-x: auto; }
table { border-collapse: collapse; }
th, td { border: 1px solid #e9ecef; padding: 4px 10px; text-align: left; }
footer { text-align: center; margin-top: 40px; padding: 20px; color: #666; }
</style>
</head>
<body>
<main>
{{.Body}}
</main>
<footer>{{.Info.Service}} v{{.Info.Version}}</footer>
</body>
</html>
`))
