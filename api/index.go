// Package handler is the serverless entrypoint for the documentation page
// (/ and /api). The sibling scrape and health directories hold the other
// entrypoints; all of them share one lazily built application per process.
package handler

import (
	"net/http"

	"github.com/JakeFAU/pagescrape/internal/server"
)

// Handler serves the documentation page.
func Handler(w http.ResponseWriter, r *http.Request) {
	server.FunctionHandler().ServeHTTP(w, r)
}
