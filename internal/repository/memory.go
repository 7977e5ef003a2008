package repository

import (
	"context"
	"sync"

	"github.com/causeway-ops/causeway/internal/models"
)

// MemoryStore is an in-memory Store implementation used in tests and in the
// one-shot CLI mode.
type MemoryStore struct {
	mu            sync.RWMutex
	organizations map[string]models.Organization
	indices       map[string]models.KnowledgeBaseIndex // keyed by organization id
	integrations  map[string][]models.Integration      // keyed by organization id
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		organizations: make(map[string]models.Organization),
		indices:       make(map[string]models.KnowledgeBaseIndex),
		integrations:  make(map[string][]models.Integration),
	}
}

// AddOrganization registers an organization.
func (s *MemoryStore) AddOrganization(org models.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organizations[org.ID] = org
}

// AddIndex registers a knowledge-base index for its organization.
func (s *MemoryStore) AddIndex(idx models.KnowledgeBaseIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indices[idx.OrganizationID] = idx
}

// AddIntegration registers an integration for its organization.
func (s *MemoryStore) AddIntegration(integ models.Integration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.integrations[integ.OrganizationID] = append(s.integrations[integ.OrganizationID], integ)
}

// GetOrganization returns the organization with the given id.
func (s *MemoryStore) GetOrganization(_ context.Context, id string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.organizations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &org, nil
}

// GetIndex returns the knowledge-base index configured for the organization.
func (s *MemoryStore) GetIndex(_ context.Context, orgID string) (*models.KnowledgeBaseIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indices[orgID]
	if !ok {
		return nil, ErrNotFound
	}
	return &idx, nil
}

// ListIntegrations returns all integrations of the organization.
func (s *MemoryStore) ListIntegrations(_ context.Context, orgID string) ([]models.Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Integration, len(s.integrations[orgID]))
	copy(out, s.integrations[orgID])
	return out, nil
}

// GetIntegrationByVendor returns the organization's integration for the vendor.
func (s *MemoryStore) GetIntegrationByVendor(_ context.Context, orgID, vendor string) (*models.Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, integ := range s.integrations[orgID] {
		if integ.Vendor == vendor {
			out := integ
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// GetIntegration returns a single integration by id.
func (s *MemoryStore) GetIntegration(_ context.Context, id string) (*models.Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.integrations {
		for _, integ := range list {
			if integ.ID == id {
				out := integ
				return &out, nil
			}
		}
	}
	return nil, ErrNotFound
}
