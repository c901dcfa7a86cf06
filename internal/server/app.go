// Package server assembles the scraper application and runs its HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagescrape/internal/api"
	"github.com/JakeFAU/pagescrape/internal/browser"
	"github.com/JakeFAU/pagescrape/internal/clock/system"
	"github.com/JakeFAU/pagescrape/internal/config"
	"github.com/JakeFAU/pagescrape/internal/docs"
	"github.com/JakeFAU/pagescrape/internal/id/uuid"
	"github.com/JakeFAU/pagescrape/internal/markdown"
	"github.com/JakeFAU/pagescrape/internal/policy/ratelimit"
	"github.com/JakeFAU/pagescrape/internal/scrape"
	"github.com/JakeFAU/pagescrape/internal/telemetry"
)

// ServiceName is reported by /health and shown on the documentation page.
const ServiceName = "Web Scraper API"

// Version is overridden at build time with -ldflags "-X".
var Version = "1.0.0"

// App contains the application's dependencies.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	provisioner scrape.Provisioner
	handler     http.Handler

	tracerShutdown func(context.Context) error
}

// NewApp builds the scrape pipeline and its HTTP surface from cfg.
func NewApp(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := api.NormalizePrefix(cfg.Server.PathPrefix)
	logger.Info("creating application",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("path_prefix", prefix),
		zap.String("browser_strategy", cfg.Browser.Strategy),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
	)

	provisioner, err := NewProvisioner(cfg, logger.Named("browser"))
	if err != nil {
		return nil, err
	}
	app, err := newApp(cfg, provisioner, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Tracing.Enabled {
		shutdown, err := telemetry.InitTracerProvider(context.Background(), telemetry.Config{
			ServiceName: ServiceName,
			Version:     Version,
			ProjectID:   cfg.Tracing.ProjectID,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("tracer init failed: %w", err)
		}
		app.tracerShutdown = shutdown
		app.handler = otelhttp.NewHandler(app.handler, "http.server")
		logger.Info("tracing enabled", zap.Bool("cloud_trace_export", cfg.Tracing.ProjectID != ""))
	}
	return app, nil
}

func newApp(cfg config.Config, provisioner scrape.Provisioner, logger *zap.Logger) (*App, error) {
	prefix := api.NormalizePrefix(cfg.Server.PathPrefix)
	clock := system.New()

	svcCfg := cfg.ServiceConfig()
	if cfg.RateLimit.PerHostRPS > 0 {
		svcCfg.Limiter = ratelimit.New(ratelimit.Config{
			PerHostRPS: cfg.RateLimit.PerHostRPS,
			Burst:      cfg.RateLimit.Burst,
		})
	}
	service := scrape.NewService(provisioner, markdown.New(), clock, svcCfg, logger.Named("scrape"))

	renderer, err := docs.New(docs.Info{Service: ServiceName, Version: Version, Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("docs init failed: %w", err)
	}

	apiServer := api.NewServer(
		service,
		renderer,
		uuid.NewUUIDGenerator(),
		clock,
		api.Options{
			Prefix:        prefix,
			Service:       ServiceName,
			Version:       Version,
			EnableMetrics: cfg.Metrics.Enabled,
		},
		logger.Named("api"),
	)

	return &App{
		cfg:         cfg,
		logger:      logger,
		provisioner: provisioner,
		handler:     apiServer.Handler(),
	}, nil
}

// NewProvisioner picks the launch strategy named by cfg.Browser.Strategy.
// "auto" must already have been resolved by config loading.
func NewProvisioner(cfg config.Config, logger *zap.Logger) (scrape.Provisioner, error) {
	opts := cfg.BrowserOptions()
	switch cfg.Browser.Strategy {
	case config.StrategyLocal:
		return browser.NewLocal(opts, logger), nil
	case config.StrategyServerless:
		return browser.NewServerless(opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown browser strategy %q", cfg.Browser.Strategy)
	}
}

// Handler returns the routed HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close flushes telemetry. The HTTP server must already be stopped.
func (a *App) Close(ctx context.Context) error {
	if a.tracerShutdown == nil {
		return nil
	}
	if err := a.tracerShutdown(ctx); err != nil {
		a.logger.Warn("tracer shutdown failed", zap.Error(err))
		return fmt.Errorf("tracer shutdown: %w", err)
	}
	return nil
}

// Run listens on the configured port and blocks until ctx is canceled or the
// process receives SIGINT/SIGTERM, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", a.cfg.Server.Port, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener. The listener is closed on return.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started",
			zap.String("addr", ln.Addr().String()),
			zap.String("browser_strategy", a.provisioner.Strategy()),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serveErr; err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("shutdown complete")
	return nil
}
