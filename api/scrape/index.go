// Package handler is the serverless entrypoint for POST /api/scrape.
package handler

import (
	"net/http"

	"github.com/JakeFAU/pagescrape/internal/server"
)

// Handler serves POST /api/scrape.
func Handler(w http.ResponseWriter, r *http.Request) {
	server.FunctionHandler().ServeHTTP(w, r)
}
