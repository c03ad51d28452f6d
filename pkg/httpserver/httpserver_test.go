package httpserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docshistory/histories-backend/internal/changetracker"
	"github.com/stretchr/testify/assert"
)

func TestNewHandler(t *testing.T) {
	handler := NewHandler(context.Background(), changetracker.NewDefault())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest("POST", "/PreviewHistoryDiff", bytes.NewBufferString(
		`{"data": {"path": "users/alice", "after": {"exists": true, "data": {"name": "Alice"}, "updateTime": "2020-10-01T12:00:00Z"}}}`))
	req.Header.Set("Content-Type", "application/json")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data": {
		"path": "users/alice",
		"type": "CREATE",
		"timestamp": "2020-10-01T12:00:00Z",
		"body": {"name": "Alice", "__diff": [{"field": "name", "path": ["name"], "op": "ADDED", "after": "Alice"}]}
	}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServeStopsOnContextDone(t *testing.T) {
	srv, err := NewServer(context.Background(), &Config{Port: "0"})
	if err != nil {
		t.Fatal(err)
	}
	assert.NotEmpty(t, srv.Port())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, srv.ServeHTTPHandler(ctx, NewHandler(ctx, changetracker.NewDefault())))
}
