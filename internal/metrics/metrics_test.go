package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/probe", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/probe", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418")); val != before+1 {
		t.Errorf("expected httpRequestsTotal GET 418 to be %f, got %f", before+1, val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val <= 0 {
		t.Errorf("expected httpRequestDurationSeconds to be observed, got %d", val)
	}
}

func TestObserveScrape(t *testing.T) {
	before := testutil.ToFloat64(scrapeRequestsTotal.WithLabelValues(OutcomeSuccess))
	ObserveScrape(OutcomeSuccess, 1500*time.Millisecond)
	if val := testutil.ToFloat64(scrapeRequestsTotal.WithLabelValues(OutcomeSuccess)); val != before+1 {
		t.Errorf("expected scrape counter %f, got %f", before+1, val)
	}

	// Validation failures never launch a browser, so no duration is recorded.
	ObserveScrape(OutcomeValidation, 0)
	if val := testutil.CollectAndCount(scrapeDurationSeconds); val != 1 {
		t.Errorf("expected a single duration series, got %d", val)
	}
}

func TestObserveCleanupFailure(t *testing.T) {
	before := testutil.ToFloat64(scrapeCleanupFailuresTotal.WithLabelValues("page"))
	ObserveCleanupFailure("page")
	if val := testutil.ToFloat64(scrapeCleanupFailuresTotal.WithLabelValues("page")); val != before+1 {
		t.Errorf("expected cleanup counter %f, got %f", before+1, val)
	}
}

func TestObserveBrowserLaunch(t *testing.T) {
	okBefore := testutil.ToFloat64(browserLaunchesTotal.WithLabelValues("local", "ok"))
	errBefore := testutil.ToFloat64(browserLaunchesTotal.WithLabelValues("local", "error"))

	ObserveBrowserLaunch("local", nil)
	ObserveBrowserLaunch("local", errors.New("no chrome"))

	if val := testutil.ToFloat64(browserLaunchesTotal.WithLabelValues("local", "ok")); val != okBefore+1 {
		t.Errorf("expected ok launches %f, got %f", okBefore+1, val)
	}
	if val := testutil.ToFloat64(browserLaunchesTotal.WithLabelValues("local", "error")); val != errBefore+1 {
		t.Errorf("expected failed launches %f, got %f", errBefore+1, val)
	}
}

func histogramSamples(t *testing.T, name string) uint64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	return 0
}

func TestObserveRateLimitWait(t *testing.T) {
	before := histogramSamples(t, "scrape_rate_limit_wait_seconds")
	ObserveRateLimitWait(250 * time.Millisecond)
	if got := histogramSamples(t, "scrape_rate_limit_wait_seconds"); got != before+1 {
		t.Fatalf("expected %d samples, got %d", before+1, got)
	}
}
