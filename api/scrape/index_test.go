package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerRejectsLocalURL(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"url":"http://localhost:8080"}`))
	req.Header.Set("Content-Type", "application/json")
	Handler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"Validation failed","details":[{"msg":"Local URLs are not allowed","param":"url"}]}`, rec.Body.String())
}

func TestHandlerOptions(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodOptions, "/api/scrape", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
}
