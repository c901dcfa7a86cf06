package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagescrape/internal/metrics"
)

var tracer = otel.Tracer("github.com/JakeFAU/pagescrape/internal/scrape")

// Resource names reported when cleanup fails.
const (
	ResourcePage    = "page"
	ResourceBrowser = "browser"
)

// Limiter delays a scrape until its target may be contacted again.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// ServiceConfig carries the tunables of the scrape pipeline. A nil Limiter
// disables throttling.
type ServiceConfig struct {
	Loader       LoaderConfig
	MaxURLLength int
	Limiter      Limiter
}

// Service runs the full scrape pipeline for one URL per call. Each call owns
// its own browser; nothing is shared across calls.
type Service struct {
	provisioner  Provisioner
	converter    Converter
	clock        Clock
	loader       *Loader
	limiter      Limiter
	maxURLLength int
	logger       *zap.Logger
}

// NewService wires the pipeline collaborators.
func NewService(provisioner Provisioner, converter Converter, clock Clock, cfg ServiceConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxURLLength <= 0 {
		cfg.MaxURLLength = DefaultMaxURLLength
	}
	return &Service{
		provisioner:  provisioner,
		converter:    converter,
		clock:        clock,
		loader:       NewLoader(cfg.Loader, logger.Named("loader")),
		limiter:      cfg.Limiter,
		maxURLLength: cfg.MaxURLLength,
		logger:       logger,
	}
}

// Validate checks rawURL without touching the browser.
func (s *Service) Validate(rawURL string) *ValidationError {
	return ValidateURL(rawURL, s.maxURLLength)
}

// Scrape validates rawURL, renders it in a fresh browser and returns the
// extracted links, serialized HTML and Markdown. A *ValidationError is
// returned for rejected input; any other error should go through a
// Classifier. The browser is released on every path.
func (s *Service) Scrape(ctx context.Context, rawURL string) (Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "scrape", trace.WithAttributes(
		attribute.String("url.full", rawURL),
		attribute.String("browser.strategy", s.provisioner.Strategy()),
	))
	defer span.End()

	if verr := s.Validate(rawURL); verr != nil {
		metrics.ObserveScrape(metrics.OutcomeValidation, 0)
		span.SetStatus(codes.Error, verr.Message)
		return Result{}, verr
	}

	logger := s.logger.With(zap.String("url", rawURL), zap.String("strategy", s.provisioner.Strategy()))
	logger.Info("scrape started")

	result, err := s.run(ctx, rawURL, logger)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveScrape(KindOf(err).String(), elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("scrape.elements", result.LinksCount))

	metrics.ObserveScrape(metrics.OutcomeSuccess, elapsed)
	metrics.ObserveElements(result.LinksCount)
	logger.Info("scrape finished",
		zap.Duration("duration", elapsed),
		zap.Int("elements", result.LinksCount),
	)
	return result, nil
}

func (s *Service) run(ctx context.Context, rawURL string, logger *zap.Logger) (Result, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, rawURL); err != nil {
			return Result{}, fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	r := &reclaimer{logger: logger}
	defer r.release()

	browser, err := s.provisioner.Launch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("launch browser: %w", err)
	}
	r.browser = browser
	trace.SpanFromContext(ctx).AddEvent("browser launched")

	page, err := browser.NewPage(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("open page: %w", err)
	}
	r.page = page
	trace.SpanFromContext(ctx).AddEvent("page opened")

	if err := s.loader.Load(ctx, page, rawURL); err != nil {
		return Result{}, fmt.Errorf("load page: %w", err)
	}
	trace.SpanFromContext(ctx).AddEvent("page loaded")

	links, err := ExtractElements(ctx, page)
	if err != nil {
		return Result{}, fmt.Errorf("extract elements: %w", err)
	}

	html, err := page.Content(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("serialize page: %w", err)
	}

	markdown, err := s.converter.Convert(html)
	if err != nil {
		return Result{}, fmt.Errorf("convert to markdown: %w", err)
	}

	return Result{
		URL:        rawURL,
		Links:      links,
		HTML:       html,
		Markdown:   markdown,
		Timestamp:  FormatTimestamp(s.clock.Now()),
		LinksCount: len(links),
	}, nil
}

// reclaimer closes whatever the pipeline acquired, page before browser.
// Close errors are logged and counted but never surfaced.
type reclaimer struct {
	page    Page
	browser Browser
	logger  *zap.Logger
}

func (r *reclaimer) release() {
	if r.page != nil {
		r.closeOne(ResourcePage, r.page.Close)
		r.page = nil
	}
	if r.browser != nil {
		r.closeOne(ResourceBrowser, r.browser.Close)
		r.browser = nil
	}
}

func (r *reclaimer) closeOne(resource string, closeFn func() error) {
	err := closeFn()
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	metrics.ObserveCleanupFailure(resource)
	r.logger.Error("failed to release resource", zap.String("resource", resource), zap.Error(err))
}
