package scrape

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagescrape/internal/metrics"
)

// Default page loading budgets.
const (
	DefaultNavigationTimeout  = 30 * time.Second
	DefaultNetworkIdleTimeout = 10 * time.Second
	DefaultSettleDelay        = 2 * time.Second
)

// LoaderConfig holds the fixed wait policy used for every page.
type LoaderConfig struct {
	NavigationTimeout  time.Duration
	NetworkIdleTimeout time.Duration
	SettleDelay        time.Duration
}

// DefaultLoaderConfig returns the standard 30s/10s/2s policy.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		NavigationTimeout:  DefaultNavigationTimeout,
		NetworkIdleTimeout: DefaultNetworkIdleTimeout,
		SettleDelay:        DefaultSettleDelay,
	}
}

func (c LoaderConfig) withDefaults() LoaderConfig {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	if c.NetworkIdleTimeout <= 0 {
		c.NetworkIdleTimeout = DefaultNetworkIdleTimeout
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	return c
}

// Loader navigates a page and waits until its content is settled enough to read.
type Loader struct {
	cfg    LoaderConfig
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewLoader builds a Loader; zero timeouts fall back to the defaults.
func NewLoader(cfg LoaderConfig, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		cfg:    cfg.withDefaults(),
		logger: logger,
		sleep:  sleepContext,
	}
}

// Load runs DOM-ready navigation, a best-effort network idle wait, and a
// fixed settle delay. Only navigation errors and cancellation are returned.
func (l *Loader) Load(ctx context.Context, page Page, rawURL string) error {
	if err := page.Navigate(ctx, rawURL, l.cfg.NavigationTimeout); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}

	if err := page.WaitNetworkIdle(ctx, l.cfg.NetworkIdleTimeout); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("wait network idle: %w", ctx.Err())
		}
		metrics.ObserveNetworkIdleTimeout()
		l.logger.Info("network idle wait timed out, continuing",
			zap.String("url", rawURL),
			zap.Duration("timeout", l.cfg.NetworkIdleTimeout),
			zap.Error(err),
		)
	}

	if err := l.sleep(ctx, l.cfg.SettleDelay); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
