package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagescrape/internal/docs"
	"github.com/JakeFAU/pagescrape/internal/metrics"
	"github.com/JakeFAU/pagescrape/internal/scrape"
)

// Allow-Methods values advertised per endpoint.
const (
	allowGet      = "GET, OPTIONS"
	allowPost     = "POST, OPTIONS"
	allowFallback = "GET, POST, OPTIONS"
)

const maxBodyBytes = 1 << 20

// Scraper runs one scrape per call.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (scrape.Result, error)
}

// IDGenerator issues request identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Options controls routing and the service identity reported by /health.
type Options struct {
	Prefix        string
	Service       string
	Version       string
	EnableMetrics bool
	Classifier    scrape.Classifier
}

// Server wires HTTP handlers to the scrape pipeline.
type Server struct {
	router     chi.Router
	scraper    Scraper
	docs       *docs.Renderer
	idGen      IDGenerator
	clock      scrape.Clock
	classifier scrape.Classifier
	opts       Options
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	scraper Scraper,
	docsRenderer *docs.Renderer,
	idGen IDGenerator,
	clock scrape.Clock,
	opts Options,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Prefix = NormalizePrefix(opts.Prefix)
	classifier := opts.Classifier
	if classifier == nil {
		classifier = scrape.DefaultClassifier
	}
	s := &Server{
		scraper:    scraper,
		docs:       docsRenderer,
		idGen:      idGen,
		clock:      clock,
		classifier: classifier,
		opts:       opts,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(headersMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	prefix := opts.Prefix
	r.HandleFunc(prefix+"/scrape", gate(http.MethodPost, allowPost, s.scrape))
	r.HandleFunc(prefix+"/health", gate(http.MethodGet, allowGet, s.health))
	r.HandleFunc("/", gate(http.MethodGet, allowGet, s.index))
	if prefix != "" {
		r.HandleFunc(prefix, gate(http.MethodGet, allowGet, s.index))
		r.HandleFunc(prefix+"/index", gate(http.MethodGet, allowGet, s.index))
	}
	if opts.EnableMetrics {
		r.Handle("/metrics", gate(http.MethodGet, allowGet, metrics.Handler().ServeHTTP))
	}
	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.notFound)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// NormalizePrefix returns prefix with one leading slash and no trailing one;
// "" and "/" both mean no prefix.
func NormalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

// gate answers OPTIONS, rejects methods other than method with a 405, and
// advertises allow on every response.
func gate(method, allow string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", allow)
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		case method:
			next(w, r)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, messageResponse{
				Error:   "Method not allowed",
				Message: fmt.Sprintf("Only %s requests are allowed", method),
			})
		}
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: s.now(),
		Service:   s.opts.Service,
		Version:   s.opts.Version,
	})
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		s.notFound(w, r)
		return
	}
	page, err := s.docs.Render(r.Host)
	if err != nil {
		s.logger.Error("render docs failed", zap.Error(err))
		s.writeInternalError(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page); err != nil {
		s.logger.Debug("write docs failed", zap.Error(err))
	}
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrape.Request
	if err := decodeJSON(w, r, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "url" {
			writeValidation(w, scrape.ValidationError{Field: "url", Message: scrape.MsgInvalidURL})
			return
		}
		writeValidation(w, scrape.ValidationError{Field: "body", Message: "Request body must be a JSON object"})
		return
	}

	result, err := s.scraper.Scrape(r.Context(), req.URL)
	if err == nil {
		writeJSON(w, http.StatusOK, result)
		return
	}

	var verr *scrape.ValidationError
	if errors.As(err, &verr) {
		writeValidation(w, *verr)
		return
	}

	c := s.classifier.Classify(err)
	fields := []zap.Field{
		zap.String("url", req.URL),
		zap.Int("status", c.Status),
		zap.String("kind", c.Kind.String()),
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.Error(err),
	}
	if c.Kind == scrape.KindUnknown {
		s.logger.Error("scrape failed", fields...)
	} else {
		s.logger.Warn("scrape failed", fields...)
	}
	writeJSON(w, c.Status, scrapeErrorResponse{
		Error:     c.Message,
		URL:       req.URL,
		Timestamp: s.now(),
	})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", allowFallback)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusNotFound, messageResponse{
		Error:   "Endpoint not found",
		Message: fmt.Sprintf("Use POST %s/scrape to scrape a website", s.opts.Prefix),
	})
}

func (s *Server) writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, internalErrorResponse{
		Error:     scrape.MsgInternal,
		Timestamp: s.now(),
	})
}

// InternalErrorHandler answers every request with the generic 500 body. It
// stands in for the router when the application could not be built.
func InternalErrorHandler(clock scrape.Clock) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, internalErrorResponse{
			Error:     scrape.MsgInternal,
			Timestamp: scrape.FormatTimestamp(clock.Now()),
		})
	})
}

func (s *Server) now() string {
	return scrape.FormatTimestamp(s.clock.Now())
}

// decodeJSON reads a single JSON object from the body. An empty body decodes
// to the zero value so that a missing url is reported by validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
