package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/security"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagescrape/internal/scrape"
)

// Session is one launched browser owned by a single scrape.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	release     func() error
	opts        Options
	logger      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// startSession connects a chromedp browser context to allocCtx and waits for
// the browser to come up within opts.LaunchTimeout. release, when set, runs
// after the browser is closed to tear down anything the provisioner owns.
func startSession(
	ctx context.Context,
	allocCtx context.Context,
	allocCancel context.CancelFunc,
	opts Options,
	logger *zap.Logger,
	release func() error,
) (*Session, error) {
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := runBounded(ctx, browserCtx, browserCancel, opts.LaunchTimeout); err != nil {
		browserCancel()
		allocCancel()
		if release != nil {
			_ = release()
		}
		return nil, asFailure("launch", err)
	}
	return &Session{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		release:     release,
		opts:        opts,
		logger:      logger,
	}, nil
}

// NewPage opens a tab in a fresh browser context so cookies and storage are
// not shared, then applies the identity, viewport and header overrides.
func (s *Session) NewPage(ctx context.Context) (scrape.Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.ctx, chromedp.WithNewBrowserContext())
	events := newLifecycle()
	chromedp.ListenTarget(tabCtx, events.handle)

	if err := runBounded(ctx, tabCtx, tabCancel, s.opts.LaunchTimeout, s.prepare()); err != nil {
		tabCancel()
		return nil, asFailure("open page", err)
	}
	return &Page{ctx: tabCtx, cancel: tabCancel, events: events}, nil
}

func (s *Session) prepare() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return fmt.Errorf("enable lifecycle events: %w", err)
		}
		if err := emulation.SetUserAgentOverride(s.opts.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		viewport := emulation.SetDeviceMetricsOverride(int64(s.opts.ViewportWidth), int64(s.opts.ViewportHeight), 1, false)
		if err := viewport.Do(ctx); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
		if s.opts.IgnoreCertErrors {
			if err := security.SetIgnoreCertificateErrors(true).Do(ctx); err != nil {
				return fmt.Errorf("ignore certificate errors: %w", err)
			}
		}
		if len(s.opts.Headers) > 0 {
			if err := network.SetExtraHTTPHeaders(toNetworkHeaders(s.opts.Headers)).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		s.cancel()
		s.allocCancel()
		if s.release != nil {
			if err := s.release(); err != nil {
				errs = append(errs, fmt.Errorf("release browser process: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// Page is a single tab. Every operation is bounded by its own timeout and
// aborted when the caller's context is canceled.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	events *lifecycle

	mu     sync.Mutex
	loader cdp.LoaderID

	closeOnce sync.Once
	closeErr  error
}

// Navigate loads url and returns once DOMContentLoaded fires for the new
// document. Chrome network errors are reported as *scrape.Failure.
func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	err := p.run(ctx, timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		_, loaderID, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return navigationFailure(errorText)
		}
		p.setLoader(loaderID)
		if loaderID == "" {
			return nil
		}
		return p.events.wait(ctx, loaderID, eventDOMContentLoaded)
	}))
	return asFailure("navigate", err)
}

// WaitNetworkIdle blocks until Chrome reports the last navigation's network
// as idle.
func (p *Page) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	loaderID := p.currentLoader()
	if loaderID == "" {
		return nil
	}
	err := p.run(ctx, timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return p.events.wait(ctx, loaderID, eventNetworkIdle)
	}))
	return asFailure("wait network idle", err)
}

// Evaluate runs expression in the page and decodes its JSON result into out.
func (p *Page) Evaluate(ctx context.Context, expression string, out any) error {
	return asFailure("evaluate", p.run(ctx, 0, chromedp.Evaluate(expression, out)))
}

// Content serializes the current document, doctype included.
func (p *Page) Content(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		root, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		html, err = dom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", asFailure("content", err)
	}
	return html, nil
}

// Close closes the tab and disposes of its browser context.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		err := chromedp.Cancel(p.ctx)
		p.cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			p.closeErr = fmt.Errorf("close page: %w", err)
		}
	})
	return p.closeErr
}

func (p *Page) run(ctx context.Context, timeout time.Duration, action chromedp.Action) error {
	var (
		opCtx  context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(p.ctx, timeout)
	} else {
		opCtx, cancel = context.WithCancel(p.ctx)
	}
	defer cancel()

	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	if err := chromedp.Run(opCtx, action); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (p *Page) setLoader(id cdp.LoaderID) {
	p.mu.Lock()
	p.loader = id
	p.mu.Unlock()
}

func (p *Page) currentLoader() cdp.LoaderID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loader
}

// runBounded runs actions on a chromedp context whose lifetime must outlive
// the call, so the timeout and caller cancellation both go through cancel
// instead of a derived context.
func runBounded(ctx context.Context, target context.Context, cancel context.CancelFunc, timeout time.Duration, actions ...chromedp.Action) error {
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, cancel)
	}
	err := chromedp.Run(target, actions...)
	expired := timer != nil && !timer.Stop()

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case expired:
		return fmt.Errorf("not ready after %s: %w", timeout, context.DeadlineExceeded)
	default:
		return err
	}
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
