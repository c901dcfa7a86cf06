// Package handler is the serverless entrypoint for GET /api/health.
package handler

import (
	"net/http"

	"github.com/JakeFAU/pagescrape/internal/server"
)

// Handler serves GET /api/health.
func Handler(w http.ResponseWriter, r *http.Request) {
	server.FunctionHandler().ServeHTTP(w, r)
}
