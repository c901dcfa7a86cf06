package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "OK", body["status"])
	require.Equal(t, "Web Scraper API", body["service"])
}

func TestHandlerHealthRejectsPost(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.JSONEq(t, `{"error":"Method not allowed","message":"Only GET requests are allowed"}`, rec.Body.String())
}
