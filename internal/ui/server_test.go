package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaped-ai/playground/internal/testutil"
	"github.com/shaped-ai/playground/internal/workspace"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	s := NewServer(Config{
		Store:         workspace.NewMemoryStore(),
		Port:          0,
		SessionSecret: "test-secret-key-32-bytes-long!!",
		WindowTTL:     time.Hour,
		Logger:        testutil.NewTestLogger(t),
	})
	t.Cleanup(s.Windows().CloseAll)
	return s
}

func TestServer_Routes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantBody   string
	}{
		{name: "workspace page", method: http.MethodGet, target: "/", wantStatus: http.StatusOK, wantBody: `id="workspace"`},
		{name: "stylesheet", method: http.MethodGet, target: "/static/workspace.css", wantStatus: http.StatusOK, wantBody: "nav.tabs"},
		{name: "missing asset", method: http.MethodGet, target: "/static/nope.js", wantStatus: http.StatusNotFound},
		{name: "export without window", method: http.MethodGet, target: "/api/workspace/export", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodGet, target: "/api/tabs", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestServer_PageOpensWindow(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, s.Windows().Len())
	assert.Equal(t, "http://localhost:0", s.URL())
}
