// Package browser drives headless Chrome through chromedp and exposes it to
// the scrape pipeline as scrape.Provisioner, scrape.Browser and scrape.Page.
package browser

import (
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
)

// Launch strategies.
const (
	StrategyLocal      = "local"
	StrategyServerless = "serverless"
)

// DefaultUserAgent is the desktop Chrome identity presented to every site.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Defaults applied when Options leaves a field empty.
const (
	DefaultLaunchTimeout  = 60 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultDownloadDir    = "/tmp/pagescrape/browser"
)

// DefaultFlags returns the pinned stability flag list.
func DefaultFlags() []string {
	return []string{
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--disable-dev-shm-usage",
		"--disable-accelerated-2d-canvas",
		"--no-first-run",
		"--no-zygote",
		"--disable-gpu",
		"--disable-web-security",
		"--disable-features=VizDisplayCompositor",
	}
}

// DefaultHeaders returns the extra request headers sent with every page load.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Accept-Encoding":           "gzip, deflate",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
}

// Options configures how browsers are launched and how pages are prepared.
type Options struct {
	ExecPath         string
	DownloadDir      string
	LaunchTimeout    time.Duration
	UserAgent        string
	ViewportWidth    int
	ViewportHeight   int
	IgnoreCertErrors bool
	Flags            []string
	Headers          http.Header
}

// DefaultOptions returns the standard launch profile.
func DefaultOptions() Options {
	return Options{
		DownloadDir:      DefaultDownloadDir,
		LaunchTimeout:    DefaultLaunchTimeout,
		UserAgent:        DefaultUserAgent,
		ViewportWidth:    DefaultViewportWidth,
		ViewportHeight:   DefaultViewportHeight,
		IgnoreCertErrors: true,
		Flags:            DefaultFlags(),
		Headers:          HeadersFromMap(DefaultHeaders()),
	}
}

func (o Options) withDefaults() Options {
	if o.LaunchTimeout <= 0 {
		o.LaunchTimeout = DefaultLaunchTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = DefaultViewportWidth
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = DefaultViewportHeight
	}
	if o.DownloadDir == "" {
		o.DownloadDir = DefaultDownloadDir
	}
	o.Headers = cloneHeader(o.Headers)
	return o
}

// HeadersFromMap builds a canonicalized header set from a flat map.
func HeadersFromMap(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// launchFlag is a command-line switch split into name and optional value.
type launchFlag struct {
	name  string
	value string
}

// parseFlags turns "--name" and "--name=value" switches into launchFlags,
// skipping blanks.
func parseFlags(raw []string) []launchFlag {
	out := make([]launchFlag, 0, len(raw))
	for _, f := range raw {
		f = strings.TrimLeft(strings.TrimSpace(f), "-")
		if f == "" {
			continue
		}
		name, value, _ := strings.Cut(f, "=")
		out = append(out, launchFlag{name: name, value: value})
	}
	return out
}

func cloneHeader(src http.Header) http.Header {
	if src == nil {
		return nil
	}
	dst := make(http.Header, len(src))
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
	return dst
}

func toNetworkHeaders(h http.Header) network.Headers {
	headers := network.Headers{}
	for key, values := range h {
		if len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			headers[key] = values[0]
		} else {
			headers[key] = strings.Join(values, ", ")
		}
	}
	return headers
}
