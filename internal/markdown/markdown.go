// Package markdown converts rendered HTML documents into Markdown.
package markdown

import (
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Converter produces Markdown with ATX headings, "-" bullets and fenced code
// blocks. It is safe for concurrent use.
type Converter struct {
	conv *md.Converter
}

// New builds a Converter. Relative links are left as they appear in the page.
func New() *Converter {
	opts := &md.Options{
		HeadingStyle:     "atx",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
	}
	return &Converter{conv: md.NewConverter("", true, opts)}
}

// Convert renders html as Markdown.
func (c *Converter) Convert(html string) (string, error) {
	out, err := c.conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return out, nil
}
