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

// EntityRepository provides data access for entities. Every method scopes by
// organization id except FindAnyOrg, the single deliberate cross-org lookup
// used to distinguish "not found" from "belongs to another tenant".
type EntityRepository interface {
	Insert(ctx context.Context, entity *models.Entity) error
	// Update writes the mutable columns guarded by an optimistic version
	// check. It returns apperrors.ErrStaleVersion when the row exists with a
	// different version, apperrors.ErrNotFound when it does not exist at
	// all.
	Update(ctx context.Context, entity *models.Entity, expectedVersion int) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Entity, error)
	// FindAnyOrg returns the entity regardless of organization, or nil when
	// no such row exists.
	FindAnyOrg(ctx context.Context, id uuid.UUID) (*models.Entity, error)
	List(ctx context.Context, orgID uuid.UUID, filter models.EntityFilter) ([]*models.Entity, error)
	SetStatus(ctx context.Context, orgID, id uuid.UUID, status string, updatedBy *uuid.UUID) error
	DeleteHard(ctx context.Context, orgID, id uuid.UUID) error
	CodeExists(ctx context.Context, orgID uuid.UUID, entityType, code string, excludeID uuid.UUID) (bool, error)
}

type entityRepository struct {
	q database.Querier
}

// NewEntityRepository creates an EntityRepository over the given querier.
func NewEntityRepository(q database.Querier) EntityRepository {
	return &entityRepository{q: q}
}

var _ EntityRepository = (*entityRepository)(nil)

const entityColumns = `id, organization_id, entity_type, entity_name, entity_code, smart_code,
	status, metadata, version, created_by, updated_by, created_at, updated_at`

func (r *entityRepository) Insert(ctx context.Context, entity *models.Entity) error {
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	now := time.Now()
	entity.CreatedAt = now
	entity.UpdatedAt = now
	entity.Version = 1

	_, err := r.q.Exec(ctx, `
		INSERT INTO core_entities (id, organization_id, entity_type, entity_name, entity_code,
			smart_code, status, metadata, version, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entity.ID, entity.OrganizationID, entity.EntityType, entity.Name, entity.Code,
		entity.SmartCode, entity.Status, entity.Metadata, entity.Version,
		entity.CreatedBy, entity.UpdatedBy, entity.CreatedAt, entity.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewDuplicateCode("entity", entity.Code)
		}
		return fmt.Errorf("failed to insert entity: %w", err)
	}
	return nil
}

func (r *entityRepository) Update(ctx context.Context, entity *models.Entity, expectedVersion int) error {
	entity.UpdatedAt = time.Now()

	tag, err := r.q.Exec(ctx, `
		UPDATE core_entities
		SET entity_type = $1, entity_name = $2, entity_code = $3, smart_code = $4,
			status = $5, metadata = $6, version = version + 1, updated_by = $7, updated_at = $8
		WHERE id = $9 AND organization_id = $10 AND version = $11`,
		entity.EntityType, entity.Name, entity.Code, entity.SmartCode,
		entity.Status, entity.Metadata, entity.UpdatedBy, entity.UpdatedAt,
		entity.ID, entity.OrganizationID, expectedVersion,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewDuplicateCode("entity", entity.Code)
		}
		return fmt.Errorf("failed to update entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a concurrent update from a vanished row.
		if _, err := r.GetByID(ctx, entity.OrganizationID, entity.ID); err != nil {
			return err
		}
		return &apperrors.StaleVersionError{EntityID: entity.ID, Expected: expectedVersion}
	}
	entity.Version = expectedVersion + 1
	return nil
}

func (r *entityRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Entity, error) {
	row := r.q.QueryRow(ctx, `SELECT `+entityColumns+`
		FROM core_entities WHERE id = $1 AND organization_id = $2`, id, orgID)
	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewReferential("entity", id)
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return entity, nil
}

func (r *entityRepository) FindAnyOrg(ctx context.Context, id uuid.UUID) (*models.Entity, error) {
	row := r.q.QueryRow(ctx, `SELECT `+entityColumns+` FROM core_entities WHERE id = $1`, id)
	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find entity: %w", err)
	}
	return entity, nil
}

func (r *entityRepository) List(ctx context.Context, orgID uuid.UUID, filter models.EntityFilter) ([]*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM core_entities WHERE organization_id = $1`
	args := []any{orgID}

	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.Code != "" {
		args = append(args, filter.Code)
		query += fmt.Sprintf(" AND entity_code = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.NameLike != "" {
		args = append(args, "%"+filter.NameLike+"%")
		query += fmt.Sprintf(" AND entity_name ILIKE $%d", len(args))
	}
	query += " ORDER BY entity_type, entity_code, entity_name"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entities: %w", err)
	}
	return entities, nil
}

func (r *entityRepository) SetStatus(ctx context.Context, orgID, id uuid.UUID, status string, updatedBy *uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE core_entities
		SET status = $1, version = version + 1, updated_by = $2, updated_at = $3
		WHERE id = $4 AND organization_id = $5`,
		status, updatedBy, time.Now(), id, orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to set entity status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewReferential("entity", id)
	}
	return nil
}

func (r *entityRepository) DeleteHard(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM core_entities WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewReferential("entity", id)
	}
	return nil
}

func (r *entityRepository) CodeExists(ctx context.Context, orgID uuid.UUID, entityType, code string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM core_entities
			WHERE organization_id = $1 AND entity_type = $2 AND entity_code = $3 AND id <> $4
		)`, orgID, entityType, code, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check entity code: %w", err)
	}
	return exists, nil
}

func scanEntity(row pgx.Row) (*models.Entity, error) {
	var e models.Entity
	err := row.Scan(&e.ID, &e.OrganizationID, &e.EntityType, &e.Name, &e.Code, &e.SmartCode,
		&e.Status, &e.Metadata, &e.Version, &e.CreatedBy, &e.UpdatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
