package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagescrape/internal/scrape"
)

type messageResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Version   string `json:"version"`
}

type validationResponse struct {
	Error   string                   `json:"error"`
	Details []scrape.ValidationError `json:"details"`
}

type scrapeErrorResponse struct {
	Error     string `json:"error"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
}

type internalErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func writeValidation(w http.ResponseWriter, detail scrape.ValidationError) {
	writeJSON(w, http.StatusBadRequest, validationResponse{
		Error:   "Validation failed",
		Details: []scrape.ValidationError{detail},
	})
}

// writeJSON encodes payload without HTML escaping so serialized pages come
// back byte-for-byte.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}
