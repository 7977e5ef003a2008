package handlers

import (
	"errors"
	"net/http"

	"github.com/causeway-ops/causeway/internal/chat"
	"github.com/causeway-ops/causeway/internal/rca"
	"github.com/causeway-ops/causeway/internal/repository"
)

// classify maps service errors to an HTTP status and a stable error code.
// Anything unrecognized is a 500.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, rca.ErrOrganizationNotFound):
		return http.StatusNotFound, "organization_not_found"
	case errors.Is(err, rca.ErrKnowledgeBaseNotConfigured):
		return http.StatusPreconditionFailed, "knowledge_base_not_configured"
	case errors.Is(err, rca.ErrNoIntegrations), errors.Is(err, chat.ErrNoIntegrations):
		return http.StatusNotFound, "no_integrations"
	case errors.Is(err, rca.ErrUnknownEventSource):
		return http.StatusBadRequest, "unknown_event_source"
	case errors.Is(err, rca.ErrNoVendorIntegration):
		return http.StatusNotFound, "no_vendor_integration"
	case errors.Is(err, chat.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, chat.ErrNoMessages):
		return http.StatusBadRequest, "no_messages"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
