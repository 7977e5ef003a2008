// Package repository provides access to organizations, knowledge-base index
// records and vendor integrations.
package repository

import (
	"context"
	"errors"

	"github.com/causeway-ops/causeway/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Organizations reads tenant records.
type Organizations interface {
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
}

// Indices reads knowledge-base index configuration.
type Indices interface {
	// GetIndex returns the index configured for the organization, or
	// ErrNotFound when the knowledge base is not set up.
	GetIndex(ctx context.Context, orgID string) (*models.KnowledgeBaseIndex, error)
}

// Integrations reads vendor connection records. Credentials come back sealed;
// callers populate them through the secret manager.
type Integrations interface {
	ListIntegrations(ctx context.Context, orgID string) ([]models.Integration, error)
	GetIntegrationByVendor(ctx context.Context, orgID, vendor string) (*models.Integration, error)
	GetIntegration(ctx context.Context, id string) (*models.Integration, error)
}

// Store bundles the read interfaces consumed by the pipeline.
type Store interface {
	Organizations
	Indices
	Integrations
}
