package scrape

import (
	"context"
	"time"
)

// ElementType identifies which query produced an extracted element.
type ElementType string

// Element types reported in scrape results.
const (
	ElementAnchor ElementType = "anchor"
	ElementButton ElementType = "button"
)

// TimestampLayout matches the millisecond ISO-8601 form clients already parse.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Request is the inbound scrape payload.
type Request struct {
	URL string `json:"url"`
}

// Element is one clickable element found on the rendered page.
type Element struct {
	Text string      `json:"text"`
	Href string      `json:"href"`
	Type ElementType `json:"type"`
}

// Result is the response body of a successful scrape.
type Result struct {
	URL        string    `json:"url"`
	Links      []Element `json:"links"`
	HTML       string    `json:"html"`
	Markdown   string    `json:"markdown"`
	Timestamp  string    `json:"timestamp"`
	LinksCount int       `json:"linksCount"`
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Provisioner launches browser instances using one deployment strategy.
type Provisioner interface {
	Launch(ctx context.Context) (Browser, error)
	Strategy() string
}

// Browser is a launched browser process owned by a single request.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a tab bound to an isolated browsing context.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
	Evaluate(ctx context.Context, expression string, out any) error
	Content(ctx context.Context) (string, error)
	Close() error
}

// Converter turns rendered HTML into Markdown.
type Converter interface {
	Convert(html string) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
