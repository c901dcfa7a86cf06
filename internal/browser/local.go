package browser

import (
	"context"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagescrape/internal/metrics"
	"github.com/JakeFAU/pagescrape/internal/scrape"
)

// Local launches a Chrome found on the host (or at Options.ExecPath) through
// chromedp's exec allocator.
type Local struct {
	opts   Options
	logger *zap.Logger
}

// NewLocal builds the local provisioner.
func NewLocal(opts Options, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{opts: opts.withDefaults(), logger: logger}
}

// Strategy reports StrategyLocal.
func (l *Local) Strategy() string { return StrategyLocal }

// Launch starts a new headless browser process for one scrape.
func (l *Local) Launch(ctx context.Context) (scrape.Browser, error) {
	// The process must survive until Close even if ctx ends first; caller
	// cancellation is forwarded explicitly.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), l.allocatorOptions()...)
	session, err := startSession(ctx, allocCtx, allocCancel, l.opts, l.logger, nil)
	metrics.ObserveBrowserLaunch(StrategyLocal, err)
	if err != nil {
		l.logger.Warn("browser launch failed", zap.Error(err))
		return nil, err
	}
	l.logger.Debug("browser launched")
	return session, nil
}

func (l *Local) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.NoSandbox,
		chromedp.WindowSize(l.opts.ViewportWidth, l.opts.ViewportHeight),
		chromedp.UserAgent(l.opts.UserAgent),
		chromedp.WSURLReadTimeout(l.opts.LaunchTimeout),
	)
	for _, f := range parseFlags(l.opts.Flags) {
		if f.value == "" {
			opts = append(opts, chromedp.Flag(f.name, true))
		} else {
			opts = append(opts, chromedp.Flag(f.name, f.value))
		}
	}
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	return opts
}
