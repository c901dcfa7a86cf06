package scrape

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// ExtractionScript collects raw clickable candidates in document order. The
// inclusion rules are applied in Go by BuildElements.
const ExtractionScript = `(() => {
  const hrefOf = (a) => {
    if (typeof a.href === 'string') return a.href;
    return (a.href && a.href.baseVal) || '';
  };
  const anchors = Array.from(document.querySelectorAll('a[href]'), (a) => ({
    text: a.textContent || '',
    href: hrefOf(a),
  }));
  const buttons = Array.from(document.querySelectorAll('button'), (b) => ({
    text: b.textContent || '',
    onclick: b.getAttribute('onclick') || '',
    dataAction: b.getAttribute('data-action') || '',
  }));
  return { anchors, buttons };
})()`

// Candidates is the raw output of ExtractionScript.
type Candidates struct {
	Anchors []AnchorCandidate `json:"anchors"`
	Buttons []ButtonCandidate `json:"buttons"`
}

// AnchorCandidate is an <a href> element as seen by the page.
type AnchorCandidate struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// ButtonCandidate is a <button> element as seen by the page.
type ButtonCandidate struct {
	Text       string `json:"text"`
	OnClick    string `json:"onclick"`
	DataAction string `json:"dataAction"`
}

// ExtractElements runs the extraction query on page and returns every
// qualifying anchor followed by every qualifying button.
func ExtractElements(ctx context.Context, page Page) ([]Element, error) {
	var raw Candidates
	if err := page.Evaluate(ctx, ExtractionScript, &raw); err != nil {
		return nil, fmt.Errorf("evaluate extraction script: %w", err)
	}
	return BuildElements(raw), nil
}

// BuildElements applies the inclusion rules to raw candidates. The result is
// never nil and is not deduplicated.
func BuildElements(raw Candidates) []Element {
	elements := make([]Element, 0, len(raw.Anchors)+len(raw.Buttons))
	for _, a := range raw.Anchors {
		text := trimText(a.Text)
		if text == "" || a.Href == "" {
			continue
		}
		elements = append(elements, Element{Text: text, Href: a.Href, Type: ElementAnchor})
	}
	for _, b := range raw.Buttons {
		text := trimText(b.Text)
		if text == "" {
			continue
		}
		elements = append(elements, Element{Text: text, Href: buttonAction(b), Type: ElementButton})
	}
	return elements
}

// trimText strips what the page's String.prototype.trim strips, which
// includes the byte order mark.
func trimText(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\ufeff'
	})
}

func buttonAction(b ButtonCandidate) string {
	switch {
	case b.OnClick != "":
		return b.OnClick
	case b.DataAction != "":
		return b.DataAction
	default:
		return "#"
	}
}
