package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/causeway-ops/causeway/internal/models"
)

// PostgresStore implements Store on top of PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and verifies the connection.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// GetOrganization returns the organization with the given id.
func (s *PostgresStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	q := `SELECT id, name, created_at FROM organizations WHERE id = $1`
	var org models.Organization
	err := s.pool.QueryRow(ctx, q, id).Scan(&org.ID, &org.Name, &org.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &org, nil
}

// GetIndex returns the knowledge-base index configured for the
// organization.
func (s *PostgresStore) GetIndex(ctx context.Context, orgID string) (*models.KnowledgeBaseIndex, error) {
	q := `SELECT id, organization_id, name, type, created_at
          FROM kb_indices
          WHERE organization_id = $1
          ORDER BY created_at DESC
          LIMIT 1`
	var idx models.KnowledgeBaseIndex
	err := s.pool.QueryRow(ctx, q, orgID).Scan(
		&idx.ID, &idx.OrganizationID, &idx.Name, &idx.Type, &idx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get index: %w", err)
	}
	return &idx, nil
}

// ListIntegrations returns all integrations of the organization with their
// sealed credentials.
func (s *PostgresStore) ListIntegrations(ctx context.Context, orgID string) ([]models.Integration, error) {
	q := `SELECT id, organization_id, vendor, metadata, sealed_credentials
          FROM integrations
          WHERE organization_id = $1
          ORDER BY created_at`
	rows, err := s.pool.Query(ctx, q, orgID)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()

	var out []models.Integration
	for rows.Next() {
		var integ models.Integration
		if err := rows.Scan(
			&integ.ID, &integ.OrganizationID, &integ.Vendor,
			&integ.Metadata, &integ.SealedCredentials,
		); err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		out = append(out, integ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate integrations: %w", err)
	}
	return out, nil
}

// GetIntegrationByVendor returns the organization's integration for the given vendor.
func (s *PostgresStore) GetIntegrationByVendor(ctx context.Context, orgID, vendor string) (*models.Integration, error) {
	q := `SELECT id, organization_id, vendor, metadata, sealed_credentials
          FROM integrations
          WHERE organization_id = $1 AND vendor = $2
          LIMIT 1`
	var integ models.Integration
	err := s.pool.QueryRow(ctx, q, orgID, vendor).Scan(
		&integ.ID, &integ.OrganizationID, &integ.Vendor,
		&integ.Metadata, &integ.SealedCredentials,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get integration by vendor: %w", err)
	}
	return &integ, nil
}

// GetIntegration returns a single integration by id.
func (s *PostgresStore) GetIntegration(ctx context.Context, id string) (*models.Integration, error) {
	q := `SELECT id, organization_id, vendor, metadata, sealed_credentials
          FROM integrations
          WHERE id = $1`
	var integ models.Integration
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&integ.ID, &integ.OrganizationID, &integ.Vendor,
		&integ.Metadata, &integ.SealedCredentials,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get integration: %w", err)
	}
	return &integ, nil
}
