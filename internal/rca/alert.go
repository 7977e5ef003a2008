package rca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/causeway-ops/causeway/internal/models"
	"github.com/causeway-ops/causeway/internal/repository"
)

// fetchAlert resolves the alert parser for the event source, looks up the
// organization's matching integration and normalizes the incident. Single
// attempt, any failure propagates.
func (e *Engine) fetchAlert(ctx context.Context, eventID, eventSource, organizationID string) (*models.AlertEvent, error) {
	parser, ok := e.registry.AlertParser(eventSource)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventSource, eventSource)
	}

	integration, err := e.store.GetIntegrationByVendor(ctx, organizationID, eventSource)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoVendorIntegration, eventSource)
		}
		return nil, fmt.Errorf("fetch %s integration: %w", eventSource, err)
	}

	populated, err := e.secrets.PopulateCredentials([]models.Integration{*integration})
	if err != nil {
		return nil, fmt.Errorf("populate %s credentials: %w", eventSource, err)
	}

	callCtx, cancel := e.callCtx(ctx)
	defer cancel()
	return parser.ParseAlert(callCtx, populated[0], eventID)
}

// buildIncidentPrompt renders a normalized event as the incident text fed to
// every prompt in the run.
func buildIncidentPrompt(event *models.AlertEvent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\n", event.Source)
	fmt.Fprintf(&sb, "Message: %s\n", event.Message)
	if !event.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "Created at: %s\n", event.CreatedAt.UTC().Format(time.RFC3339))
	}
	if len(event.Data) > 0 {
		if details, err := json.MarshalIndent(event.Data, "", "  "); err == nil {
			fmt.Fprintf(&sb, "Details:\n%s\n", details)
		}
	}
	return sb.String()
}
