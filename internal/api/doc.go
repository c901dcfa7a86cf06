// Package api hosts the HTTP surface of the scraper. Routes, relative to the
// configured prefix:
//   - POST /scrape renders a page and returns its links, HTML and Markdown.
//   - GET /health reports liveness.
//   - GET / (plus GET {prefix} and GET {prefix}/index) serves the documentation page.
//   - GET /metrics exposes Prometheus collectors when enabled.
//
// Every response carries permissive CORS headers and a small set of security
// headers, and OPTIONS on any path is answered with an empty 200.
package api
