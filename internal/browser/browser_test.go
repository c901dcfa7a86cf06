package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagescrape/internal/scrape"
)

func TestKindForCode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		code string
		want scrape.FailureKind
	}{
		{"net::ERR_NAME_NOT_RESOLVED", scrape.KindNameNotResolved},
		{"net::ERR_CONNECTION_REFUSED", scrape.KindConnectionRefused},
		{"net::ERR_CERT_AUTHORITY_INVALID", scrape.KindCertificate},
		{"net::ERR_CERT_DATE_INVALID", scrape.KindCertificate},
		{"net::ERR_TIMED_OUT", scrape.KindUnknown},
		{"net::ERR_ABORTED", scrape.KindUnknown},
		{"", scrape.KindUnknown},
	}
	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, kindForCode(tc.code))
		})
	}
}

func TestNavigationFailureClassifies(t *testing.T) {
	t.Parallel()

	err := asFailure("navigate", navigationFailure("net::ERR_CONNECTION_REFUSED"))
	got := scrape.DefaultClassifier.Classify(fmt.Errorf("load page: %w", err))
	require.Equal(t, http.StatusServiceUnavailable, got.Status)
	require.Contains(t, err.Error(), "net::ERR_CONNECTION_REFUSED")
}

func TestAsFailure(t *testing.T) {
	t.Parallel()

	require.NoError(t, asFailure("navigate", nil))

	err := asFailure("navigate", context.DeadlineExceeded)
	var failure *scrape.Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, scrape.KindTimeout, failure.Kind)
	require.Equal(t, "navigate", failure.Op)

	plain := errors.New("websocket closed")
	err = asFailure("evaluate", plain)
	require.ErrorIs(t, err, plain)
	require.Equal(t, scrape.KindUnknown, scrape.KindOf(err))
	require.Equal(t, "evaluate: websocket closed", err.Error())
}

func TestLifecycleWaitSeesEarlierEvent(t *testing.T) {
	t.Parallel()

	lc := newLifecycle()
	lc.handle(&page.EventLifecycleEvent{LoaderID: "L1", Name: eventDOMContentLoaded})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, lc.wait(ctx, "L1", eventDOMContentLoaded))
}

func TestLifecycleWaitWakesOnLaterEvent(t *testing.T) {
	t.Parallel()

	lc := newLifecycle()
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- lc.wait(ctx, cdp.LoaderID("L2"), eventNetworkIdle)
	}()

	lc.record("L1", eventNetworkIdle)
	lc.record("L2", eventDOMContentLoaded)
	lc.record("L2", eventNetworkIdle)
	require.NoError(t, <-done)
}

func TestLifecycleWaitHonorsContext(t *testing.T) {
	t.Parallel()

	lc := newLifecycle()
	lc.record("other", eventNetworkIdle)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, lc.wait(ctx, "L1", eventNetworkIdle), context.DeadlineExceeded)
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	got := parseFlags([]string{"--no-sandbox", " ", "--disable-features=VizDisplayCompositor", "disable-gpu"})
	require.Equal(t, []launchFlag{
		{name: "no-sandbox"},
		{name: "disable-features", value: "VizDisplayCompositor"},
		{name: "disable-gpu"},
	}, got)
}

func TestHeadersConversion(t *testing.T) {
	t.Parallel()

	src := HeadersFromMap(map[string]string{"accept-language": "en-US,en;q=0.5", "dnt": "1"})
	require.Equal(t, "en-US,en;q=0.5", src.Get("Accept-Language"))

	cloned := cloneHeader(src)
	cloned.Add("X-Test", "a")
	require.Empty(t, src.Get("X-Test"))

	src.Add("X-Multi", "a")
	src.Add("X-Multi", "b")
	netHeaders := toNetworkHeaders(src)
	require.Equal(t, "a, b", netHeaders["X-Multi"])
	require.Equal(t, "1", netHeaders["Dnt"])
}

func TestOptionsDefaults(t *testing.T) {
	t.Parallel()

	opts := Options{}.withDefaults()
	require.Equal(t, DefaultLaunchTimeout, opts.LaunchTimeout)
	require.Equal(t, DefaultUserAgent, opts.UserAgent)
	require.Equal(t, DefaultViewportWidth, opts.ViewportWidth)
	require.Equal(t, DefaultViewportHeight, opts.ViewportHeight)
	require.Equal(t, DefaultDownloadDir, opts.DownloadDir)

	def := DefaultOptions()
	require.True(t, def.IgnoreCertErrors)
	require.Contains(t, def.Flags, "--disable-features=VizDisplayCompositor")
	require.Equal(t, "1", def.Headers.Get("DNT"))
}

func TestProvisionerStrategies(t *testing.T) {
	t.Parallel()

	require.Equal(t, StrategyLocal, NewLocal(DefaultOptions(), nil).Strategy())
	require.Equal(t, StrategyServerless, NewServerless(DefaultOptions(), nil).Strategy())
}

func TestServerlessBinaryPrefersExecPath(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.ExecPath = "/opt/chromium/chrome"
	bin, err := NewServerless(opts, nil).binary()
	require.NoError(t, err)
	require.Equal(t, "/opt/chromium/chrome", bin)
}

func TestLocalScrapePipeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!doctype html><html><body>
<a href="/about"> About us </a>
<a href="/empty">   </a>
<button onclick="go()">Go</button>
<button data-action="menu">Menu</button>
<button>Plain</button>
<script>document.body.insertAdjacentHTML('beforeend', '<div id="late">late content</div>');</script>
</body></html>`)
	}))
	defer srv.Close()

	// Loopback URLs never pass request validation, so the pipeline pieces
	// are driven directly here.
	provisioner := NewLocal(DefaultOptions(), zap.NewNop())
	ctx := context.Background()
	b, err := provisioner.Launch(ctx)
	if err != nil {
		t.Skipf("chrome unavailable: %v", err)
	}
	defer func() { _ = b.Close() }()

	p, err := b.NewPage(ctx)
	if err != nil {
		t.Skipf("page setup failed: %v", err)
	}
	defer func() { _ = p.Close() }()

	loader := scrape.NewLoader(scrape.LoaderConfig{NavigationTimeout: 10 * time.Second, NetworkIdleTimeout: 2 * time.Second}, zap.NewNop())
	require.NoError(t, loader.Load(ctx, p, srv.URL))

	links, err := scrape.ExtractElements(ctx, p)
	require.NoError(t, err)
	require.Equal(t, []scrape.Element{
		{Text: "About us", Href: srv.URL + "/about", Type: scrape.ElementAnchor},
		{Text: "Go", Href: "go()", Type: scrape.ElementButton},
		{Text: "Menu", Href: "menu", Type: scrape.ElementButton},
		{Text: "Plain", Href: "#", Type: scrape.ElementButton},
	}, links)

	html, err := p.Content(ctx)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.ToLower(html), "<!doctype html>"))
	require.Contains(t, html, "late content")
}

func TestLocalNavigateConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	provisioner := NewLocal(DefaultOptions(), zap.NewNop())
	ctx := context.Background()
	b, err := provisioner.Launch(ctx)
	if err != nil {
		t.Skipf("chrome unavailable: %v", err)
	}
	defer func() { _ = b.Close() }()

	p, err := b.NewPage(ctx)
	if err != nil {
		t.Skipf("page setup failed: %v", err)
	}
	defer func() { _ = p.Close() }()

	err = p.Navigate(ctx, addr, 10*time.Second)
	require.Equal(t, scrape.KindConnectionRefused, scrape.KindOf(err))
}
