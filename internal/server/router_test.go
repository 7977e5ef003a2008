package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/causeway-ops/causeway/internal/handlers"
	"github.com/causeway-ops/causeway/internal/logging"
	"github.com/causeway-ops/causeway/internal/models"
	"github.com/causeway-ops/causeway/internal/repository"
	"github.com/causeway-ops/causeway/internal/vendors"
)

type noopInvestigator struct{}

func (noopInvestigator) RunRCA(_ context.Context, _, _, _ string) (string, error) {
	return "", nil
}

type noopCompleter struct{}

func (noopCompleter) Complete(_ context.Context, _ string, _ []models.ChatMessage) (string, *int, error) {
	return "", nil, nil
}

type noopSecrets struct{}

func (noopSecrets) PopulateCredentials(integrations []models.Integration) ([]models.Integration, error) {
	return integrations, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	h := handlers.New(noopInvestigator{}, noopCompleter{}, repository.NewMemoryStore(),
		noopSecrets{}, vendors.NewRegistry(), nil, logging.New(slog.LevelError, "text"))
	return NewRouter(h)
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "rca wrong method", method: http.MethodGet, path: "/api/v1/rca", wantStatus: http.StatusMethodNotAllowed},
		{name: "chat wrong method", method: http.MethodDelete, path: "/api/v1/chat/completions", wantStatus: http.StatusMethodNotAllowed},
		{name: "explore wrong method", method: http.MethodGet, path: "/api/v1/integrations/int-1/explore", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/api/v2/everything", wantStatus: http.StatusNotFound},
		{name: "root", method: http.MethodGet, path: "/", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
