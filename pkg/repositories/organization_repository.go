package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/heraerp/hera-engine/pkg/apperrors"
	"github.com/heraerp/hera-engine/pkg/database"
	"github.com/heraerp/hera-engine/pkg/models"
)

// OrganizationRepository provides data access for organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetByCode(ctx context.Context, code string) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
}

type organizationRepository struct {
	q database.Querier
}

// NewOrganizationRepository creates an OrganizationRepository over the given
// querier (pool or transaction).
func NewOrganizationRepository(q database.Querier) OrganizationRepository {
	return &organizationRepository{q: q}
}

var _ OrganizationRepository = (*organizationRepository)(nil)

const orgColumns = `id, organization_name, organization_code, organization_type, status, created_at, updated_at`

func (r *organizationRepository) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now

	_, err := r.q.Exec(ctx, `
		INSERT INTO core_organizations (id, organization_name, organization_code, organization_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		org.ID, org.Name, org.Code, org.Type, org.Status, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewDuplicateCode("organization", org.Code)
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orgColumns+` FROM core_organizations WHERE id = $1`, id)
	org, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewReferential("organization", id)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

func (r *organizationRepository) GetByCode(ctx context.Context, code string) (*models.Organization, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orgColumns+` FROM core_organizations WHERE organization_code = $1`, code)
	org, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("organization %q: %w", code, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get organization by code: %w", err)
	}
	return org, nil
}

func (r *organizationRepository) List(ctx context.Context) ([]*models.Organization, error) {
	rows, err := r.q.Query(ctx, `SELECT `+orgColumns+` FROM core_organizations ORDER BY organization_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}
	return orgs, nil
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	err := row.Scan(&org.ID, &org.Name, &org.Code, &org.Type, &org.Status, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &org, nil
}
