// Package main hosts the long-running page scraping service.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes POST /scrape, GET /health, the documentation page at / and, when
//     enabled, /metrics. Every route can sit under a common prefix (--prefix or SCRAPER_SERVER_PATH_PREFIX).
//   - Scrape pipeline: internal/scrape.Service validates the URL, launches a dedicated headless browser through the
//     configured provisioner, opens an isolated page, loads it (navigation, best-effort network idle, settle delay),
//     extracts anchors and buttons, serializes the document and converts it to Markdown.
//   - Browser provisioning: internal/browser drives Chrome with chromedp. The local strategy starts the host's
//     Chrome; the serverless strategy resolves a pre-packaged Chromium through rod's launcher and attaches to it.
//   - Configuration & plumbing: Viper populates config from defaults, an optional file, SCRAPER_* env vars, PORT and
//     flags; zap provides structured logging; Prometheus metrics are exported via the metrics middleware.
//
// Operational notes:
//   - Concurrency model: one browser per request, nothing pooled or shared. Browser and page are always closed,
//     also on failure and on client disconnect.
//   - Shutdown: SIGINT/SIGTERM stop accepting connections and drain in-flight scrapes within
//     server.shutdown_timeout.
//
// Quick checklist:
//   - Run locally: go run ./cmd/pagescrape --config config.yaml --development (or rely on env overrides).
//   - Containers: the server listens on PORT; GOMAXPROCS follows the CPU quota.
package main
