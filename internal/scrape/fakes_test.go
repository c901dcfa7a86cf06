package scrape

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type fakePage struct {
	mu sync.Mutex

	navigateErr error
	idleErr     error
	evaluateErr error
	contentErr  error
	closeErr    error

	candidates Candidates
	html       string

	calls       []string
	navigated   string
	navTimeout  time.Duration
	idleTimeout time.Duration
	evaluated   string
	closeCount  int
}

func (p *fakePage) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakePage) Navigate(_ context.Context, url string, timeout time.Duration) error {
	p.record("navigate")
	p.navigated = url
	p.navTimeout = timeout
	return p.navigateErr
}

func (p *fakePage) WaitNetworkIdle(_ context.Context, timeout time.Duration) error {
	p.record("idle")
	p.idleTimeout = timeout
	return p.idleErr
}

func (p *fakePage) Evaluate(_ context.Context, expression string, out any) error {
	p.record("evaluate")
	p.evaluated = expression
	if p.evaluateErr != nil {
		return p.evaluateErr
	}
	buf, err := json.Marshal(p.candidates)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, out)
}

func (p *fakePage) Content(context.Context) (string, error) {
	p.record("content")
	return p.html, p.contentErr
}

func (p *fakePage) Close() error {
	p.record("close")
	p.mu.Lock()
	p.closeCount++
	p.mu.Unlock()
	return p.closeErr
}

type fakeBrowser struct {
	page       *fakePage
	newPageErr error
	closeErr   error
	closeCount int
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	b.closeCount++
	return b.closeErr
}

type fakeProvisioner struct {
	browser   *fakeBrowser
	launchErr error
	launches  int
}

func (p *fakeProvisioner) Launch(context.Context) (Browser, error) {
	p.launches++
	if p.launchErr != nil {
		return nil, p.launchErr
	}
	return p.browser, nil
}

func (p *fakeProvisioner) Strategy() string { return "fake" }

type fakeConverter struct {
	markdown string
	err      error
	input    string
}

func (c *fakeConverter) Convert(html string) (string, error) {
	c.input = html
	return c.markdown, c.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func noSleep(context.Context, time.Duration) error { return nil }
