// Package handlers wires HTTP routes to the investigation and chat services
// and translates service errors into HTTP responses.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/causeway-ops/causeway/internal/chat"
	"github.com/causeway-ops/causeway/internal/logging"
	"github.com/causeway-ops/causeway/internal/models"
	"github.com/causeway-ops/causeway/internal/rca"
	"github.com/causeway-ops/causeway/internal/repository"
	"github.com/causeway-ops/causeway/internal/telemetry"
	"github.com/causeway-ops/causeway/internal/vendors"
)

// Investigator runs a full RCA for one incident.
type Investigator interface {
	RunRCA(ctx context.Context, eventID, eventSource, organizationID string) (string, error)
}

// Completer answers a chat conversation for an organization, reporting the
// remaining quota budget when one is configured.
type Completer interface {
	Complete(ctx context.Context, organizationID string, messages []models.ChatMessage) (string, *int, error)
}

// CredentialPopulator decrypts integration credentials.
type CredentialPopulator interface {
	PopulateCredentials(integrations []models.Integration) ([]models.Integration, error)
}

// Handler wires HTTP routes to the services.
type Handler struct {
	investigator Investigator
	chat         Completer
	integrations repository.Integrations
	secrets      CredentialPopulator
	registry     *vendors.Registry
	publisher    *telemetry.Publisher
	log          *logging.Logger
}

// New creates a Handler instance.
func New(investigator Investigator, chat Completer, integrations repository.Integrations, secretMgr CredentialPopulator, registry *vendors.Registry, publisher *telemetry.Publisher, log *logging.Logger) *Handler {
	return &Handler{
		investigator: investigator,
		chat:         chat,
		integrations: integrations,
		secrets:      secretMgr,
		registry:     registry,
		publisher:    publisher,
		log:          log,
	}
}

// RCA handles POST /api/v1/rca.
func (h *Handler) RCA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req models.RCARequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.EventID == "" || req.EventSource == "" || req.OrganizationID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request",
			"event_id, event_source and organization_id must be provided")
		return
	}

	analysis, err := h.investigator.RunRCA(r.Context(), req.EventID, req.EventSource, req.OrganizationID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, models.RCAResponse{
		EventID:  req.EventID,
		Analysis: analysis,
	})
}

// ChatCompletions handles POST /api/v1/chat/completions.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req models.ChatRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.OrganizationID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "organization_id must be provided")
		return
	}

	reply, remaining, err := h.chat.Complete(r.Context(), req.OrganizationID, req.Messages)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply, QuotaRemaining: remaining})
}

// IntegrationTest handles POST /api/v1/integrations/{id}/test.
func (h *Handler) IntegrationTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_integration_id", "integration id must be provided")
		return
	}

	integration, err := h.integrations.GetIntegration(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	provider, ok := h.registry.LogTool(integration.Vendor)
	if !ok {
		h.writeError(w, http.StatusUnprocessableEntity, "vendor_not_testable",
			fmt.Sprintf("vendor %s has no connection test", integration.Vendor))
		return
	}

	populated, err := h.secrets.PopulateCredentials([]models.Integration{*integration})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := models.IntegrationTestResponse{
		IntegrationID: integration.ID,
		Vendor:        integration.Vendor,
		OK:            true,
	}
	if err := provider.TestConnection(r.Context(), populated[0]); err != nil {
		resp.OK = false
		resp.Detail = err.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Explore defaults. The sample fetch stays small so the endpoint remains
// cheap to call interactively.
const (
	defaultExploreSampleSize = 50
	defaultExploreValueLimit = 20
	exploreSampleRows        = 5
	exploreWindow            = 24 * time.Hour
)

// IntegrationExplore handles POST /api/v1/integrations/{id}/explore. It
// reports the field paths seen in the integration's recent logs, a formatted
// row sample, and, when a field is named in the request, its observed values.
func (h *Handler) IntegrationExplore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_integration_id", "integration id must be provided")
		return
	}

	req := models.IntegrationExploreRequest{SampleSize: defaultExploreSampleSize}
	if r.ContentLength != 0 {
		if err := decodeJSON(r.Body, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if req.SampleSize <= 0 {
			req.SampleSize = defaultExploreSampleSize
		}
	}

	integration, err := h.integrations.GetIntegration(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	provider, ok := h.registry.LogTool(integration.Vendor)
	if !ok {
		h.writeError(w, http.StatusUnprocessableEntity, "vendor_not_explorable",
			fmt.Sprintf("vendor %s has no log provider", integration.Vendor))
		return
	}
	explorer, ok := provider.(vendors.LogExplorer)
	if !ok {
		h.writeError(w, http.StatusUnprocessableEntity, "vendor_not_explorable",
			fmt.Sprintf("vendor %s does not support schema discovery", integration.Vendor))
		return
	}

	populated, err := h.secrets.PopulateCredentials([]models.Integration{*integration})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	fields, err := explorer.CommonLogFields(r.Context(), populated[0], req.SampleSize)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := models.IntegrationExploreResponse{
		IntegrationID: integration.ID,
		Vendor:        integration.Vendor,
		Fields:        fields,
	}

	if req.Field != "" {
		values, err := explorer.CommonLogValues(r.Context(), populated[0], req.Field, defaultExploreValueLimit)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		resp.Values = values
	}

	now := time.Now().UTC()
	if fetch, err := provider.FetchLogs(r.Context(), populated[0], "", now.Add(-exploreWindow), now, exploreSampleRows); err == nil {
		resp.Sample = vendors.PrettySample(fetch.Rows)
	} else {
		h.log.WarnContext(r.Context(), "sample fetch failed during exploration",
			logging.Error(err), "integration_id", integration.ID)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFound handles requests to unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, "path_not_found",
		fmt.Sprintf("Path %s does not exist for %s method", r.URL.Path, r.Method))
}

func decodeJSON(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// writeServiceError maps a service error onto an HTTP response and logs it.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed",
			logging.Error(err), "path", r.URL.Path)
		h.publisher.Publish(r.Context(), telemetry.SubjectAppError, models.RunContext{}, map[string]any{
			"path":  r.URL.Path,
			"code":  code,
			"error": err.Error(),
		})
	} else {
		h.log.WarnContext(r.Context(), "request rejected",
			logging.Error(err), "path", r.URL.Path)
	}
	h.writeError(w, status, code, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("failed to encode JSON response", logging.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]any{
		"status":  status,
		"code":    code,
		"message": message,
	})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, method := range allowed {
		w.Header().Add("Allow", method)
	}
	h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// Ensure the services satisfy the handler contracts.
var (
	_ Investigator = (*rca.Engine)(nil)
	_ Completer    = (*chat.Service)(nil)
)
