package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagescrape/internal/metrics"
	"github.com/JakeFAU/pagescrape/internal/scrape"
)

// Serverless launches a pre-packaged Chromium suited to function runtimes.
// The binary is either Options.ExecPath or a build downloaded once into
// Options.DownloadDir; the process is started by rod's launcher and driven
// over its DevTools URL by chromedp.
type Serverless struct {
	opts   Options
	logger *zap.Logger

	mu  sync.Mutex
	bin string
}

// NewServerless builds the serverless provisioner.
func NewServerless(opts Options, logger *zap.Logger) *Serverless {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Serverless{opts: opts.withDefaults(), logger: logger}
}

// Strategy reports StrategyServerless.
func (s *Serverless) Strategy() string { return StrategyServerless }

// Launch starts a fresh browser process for one scrape.
func (s *Serverless) Launch(ctx context.Context) (scrape.Browser, error) {
	session, err := s.launch(ctx)
	metrics.ObserveBrowserLaunch(StrategyServerless, err)
	if err != nil {
		s.logger.Warn("browser launch failed", zap.Error(err))
		return nil, err
	}
	return session, nil
}

func (s *Serverless) launch(ctx context.Context) (*Session, error) {
	bin, err := s.binary()
	if err != nil {
		return nil, fmt.Errorf("resolve browser binary: %w", err)
	}

	launchCtx, cancel := context.WithTimeout(ctx, s.opts.LaunchTimeout)
	defer cancel()

	l := s.newLauncher(launchCtx, bin)
	wsURL, err := l.Launch()
	if err != nil {
		if l.PID() != 0 {
			l.Kill()
		}
		return nil, asFailure("launch", err)
	}
	s.logger.Debug("browser process started", zap.Int("pid", l.PID()), zap.String("bin", bin))

	release := func() error {
		l.Kill()
		l.Cleanup()
		return nil
	}
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.WithoutCancel(ctx), wsURL)
	return startSession(ctx, allocCtx, allocCancel, s.opts, s.logger, release)
}

func (s *Serverless) newLauncher(ctx context.Context, bin string) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(true).
		NoSandbox(true).
		Leakless(false).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", s.opts.ViewportWidth, s.opts.ViewportHeight))
	// chromedp attaches to the initial tab, so one must exist.
	l.Delete(flags.Flag("no-startup-window"))
	for _, f := range parseFlags(s.opts.Flags) {
		if f.value == "" {
			l.Set(flags.Flag(f.name))
		} else {
			l.Set(flags.Flag(f.name), f.value)
		}
	}
	return l
}

// binary returns the configured executable or downloads a Chromium build the
// first time it is needed.
func (s *Serverless) binary() (string, error) {
	if s.opts.ExecPath != "" {
		return s.opts.ExecPath, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bin != "" {
		return s.bin, nil
	}

	b := launcher.NewBrowser()
	b.RootDir = s.opts.DownloadDir
	b.Logger = zap.NewStdLog(s.logger.Named("download"))
	bin, err := b.Get()
	if err != nil {
		return "", fmt.Errorf("download chromium into %s: %w", s.opts.DownloadDir, err)
	}
	s.logger.Info("browser binary ready", zap.String("bin", bin))
	s.bin = bin
	return bin, nil
}
