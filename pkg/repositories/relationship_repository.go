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

// RelationshipRepository provides data access for the directed, typed edges
// between entities. The same store serves business hierarchies and the
// identity graph the authorization resolver walks.
type RelationshipRepository interface {
	Insert(ctx context.Context, rel *models.Relationship) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Relationship, error)
	List(ctx context.Context, orgID uuid.UUID, filter models.RelationshipFilter) ([]*models.Relationship, error)
	// ListFrom returns active out-edges of one type from one entity. It is
	// the traversal primitive for cycle checks, rollups and introspection.
	ListFrom(ctx context.Context, orgID, fromEntityID uuid.UUID, relType string) ([]*models.Relationship, error)
	// ListFromAllOrgs returns active out-edges of one type across every
	// organization. The authorization resolver is its only caller: the set
	// of organizations visible to an actor is exactly what it derives, so
	// it cannot supply an organization predicate up front.
	ListFromAllOrgs(ctx context.Context, fromEntityID uuid.UUID, relType string) ([]*models.Relationship, error)
	// Delete removes an edge; deleting a non-existent edge is not an error.
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	// DeleteByEntity removes every edge touching the entity, in either
	// direction. Used by hard entity deletion.
	DeleteByEntity(ctx context.Context, orgID, entityID uuid.UUID) error
}

type relationshipRepository struct {
	q database.Querier
}

// NewRelationshipRepository creates a RelationshipRepository over the given querier.
func NewRelationshipRepository(q database.Querier) RelationshipRepository {
	return &relationshipRepository{q: q}
}

var _ RelationshipRepository = (*relationshipRepository)(nil)

const relationshipColumns = `id, organization_id, from_entity_id, to_entity_id, relationship_type,
	smart_code, relationship_data, is_active, effective_date, created_by, created_at, updated_at`

func (r *relationshipRepository) Insert(ctx context.Context, rel *models.Relationship) error {
	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	now := time.Now()
	rel.CreatedAt = now
	rel.UpdatedAt = now
	if rel.EffectiveDate.IsZero() {
		rel.EffectiveDate = now
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO core_relationships (id, organization_id, from_entity_id, to_entity_id,
			relationship_type, smart_code, relationship_data, is_active, effective_date,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rel.ID, rel.OrganizationID, rel.FromEntityID, rel.ToEntityID,
		rel.RelationshipType, rel.SmartCode, rel.Data, rel.IsActive, rel.EffectiveDate,
		rel.CreatedBy, rel.CreatedAt, rel.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewDuplicateCode("relationship", rel.RelationshipType)
		}
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	return nil
}

func (r *relationshipRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Relationship, error) {
	row := r.q.QueryRow(ctx, `SELECT `+relationshipColumns+`
		FROM core_relationships WHERE id = $1 AND organization_id = $2`, id, orgID)
	rel, err := scanRelationship(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewReferential("relationship", id)
		}
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return rel, nil
}

func (r *relationshipRepository) List(ctx context.Context, orgID uuid.UUID, filter models.RelationshipFilter) ([]*models.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM core_relationships WHERE organization_id = $1`
	args := []any{orgID}

	if filter.FromEntityID != uuid.Nil {
		args = append(args, filter.FromEntityID)
		query += fmt.Sprintf(" AND from_entity_id = $%d", len(args))
	}
	if filter.ToEntityID != uuid.Nil {
		args = append(args, filter.ToEntityID)
		query += fmt.Sprintf(" AND to_entity_id = $%d", len(args))
	}
	if filter.RelationshipType != "" {
		args = append(args, filter.RelationshipType)
		query += fmt.Sprintf(" AND relationship_type = $%d", len(args))
	}
	if filter.ActiveOnly {
		query += " AND is_active"
	}
	query += " ORDER BY created_at"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func (r *relationshipRepository) ListFrom(ctx context.Context, orgID, fromEntityID uuid.UUID, relType string) ([]*models.Relationship, error) {
	rows, err := r.q.Query(ctx, `SELECT `+relationshipColumns+`
		FROM core_relationships
		WHERE organization_id = $1 AND from_entity_id = $2 AND relationship_type = $3 AND is_active
		ORDER BY created_at`, orgID, fromEntityID, relType)
	if err != nil {
		return nil, fmt.Errorf("failed to query out-edges: %w", err)
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func (r *relationshipRepository) ListFromAllOrgs(ctx context.Context, fromEntityID uuid.UUID, relType string) ([]*models.Relationship, error) {
	rows, err := r.q.Query(ctx, `SELECT `+relationshipColumns+`
		FROM core_relationships
		WHERE from_entity_id = $1 AND relationship_type = $2 AND is_active
		ORDER BY created_at`, fromEntityID, relType)
	if err != nil {
		return nil, fmt.Errorf("failed to query out-edges: %w", err)
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func (r *relationshipRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM core_relationships WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	return nil
}

func (r *relationshipRepository) DeleteByEntity(ctx context.Context, orgID, entityID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM core_relationships
		WHERE organization_id = $1 AND (from_entity_id = $2 OR to_entity_id = $2)`,
		orgID, entityID)
	if err != nil {
		return fmt.Errorf("failed to delete entity relationships: %w", err)
	}
	return nil
}

func collectRelationships(rows pgx.Rows) ([]*models.Relationship, error) {
	var rels []*models.Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}
	return rels, nil
}

func scanRelationship(row pgx.Row) (*models.Relationship, error) {
	var rel models.Relationship
	err := row.Scan(&rel.ID, &rel.OrganizationID, &rel.FromEntityID, &rel.ToEntityID,
		&rel.RelationshipType, &rel.SmartCode, &rel.Data, &rel.IsActive, &rel.EffectiveDate,
		&rel.CreatedBy, &rel.CreatedAt, &rel.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}
