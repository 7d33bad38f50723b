package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/heraerp/hera-engine/pkg/database"
	"github.com/heraerp/hera-engine/pkg/models"
)

// DynamicFieldRepository provides data access for the typed attributes
// attached to entities. The tagged FieldValue union maps to one populated
// value column per row; the repository is the only layer that sees the
// "which column" representation.
type DynamicFieldRepository interface {
	// Upsert writes the field value, replacing any existing value for
	// (entity_id, field_name).
	Upsert(ctx context.Context, field *models.DynamicField) error
	ListByEntity(ctx context.Context, orgID, entityID uuid.UUID) ([]*models.DynamicField, error)
	// ListByEntities returns fields for many entities in one round trip,
	// grouped by entity id. Used to flatten fields onto entity list reads.
	ListByEntities(ctx context.Context, orgID uuid.UUID, entityIDs []uuid.UUID) (map[uuid.UUID][]*models.DynamicField, error)
	DeleteByEntity(ctx context.Context, orgID, entityID uuid.UUID) error
}

type dynamicFieldRepository struct {
	q database.Querier
}

// NewDynamicFieldRepository creates a DynamicFieldRepository over the given querier.
func NewDynamicFieldRepository(q database.Querier) DynamicFieldRepository {
	return &dynamicFieldRepository{q: q}
}

var _ DynamicFieldRepository = (*dynamicFieldRepository)(nil)

const dynamicFieldColumns = `id, organization_id, entity_id, field_name, field_type,
	field_value_text, field_value_number, field_value_boolean, field_value_date, field_value_json,
	smart_code, created_at, updated_at`

func (r *dynamicFieldRepository) Upsert(ctx context.Context, field *models.DynamicField) error {
	if field.ID == uuid.Nil {
		field.ID = uuid.New()
	}
	now := time.Now()

	var (
		text    *string
		number  *decimal.Decimal
		boolean *bool
		date    *time.Time
		jsonDoc json.RawMessage
	)
	switch field.Value.Type {
	case models.FieldTypeText:
		text = &field.Value.Text
	case models.FieldTypeNumber:
		number = &field.Value.Number
	case models.FieldTypeBoolean:
		boolean = &field.Value.Boolean
	case models.FieldTypeDate:
		date = &field.Value.Date
	case models.FieldTypeJSON:
		jsonDoc = field.Value.JSON
	default:
		return fmt.Errorf("unknown field type %q", field.Value.Type)
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO core_dynamic_data (id, organization_id, entity_id, field_name, field_type,
			field_value_text, field_value_number, field_value_boolean, field_value_date, field_value_json,
			smart_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (entity_id, field_name) DO UPDATE SET
			field_type = EXCLUDED.field_type,
			field_value_text = EXCLUDED.field_value_text,
			field_value_number = EXCLUDED.field_value_number,
			field_value_boolean = EXCLUDED.field_value_boolean,
			field_value_date = EXCLUDED.field_value_date,
			field_value_json = EXCLUDED.field_value_json,
			smart_code = EXCLUDED.smart_code,
			updated_at = EXCLUDED.updated_at`,
		field.ID, field.OrganizationID, field.EntityID, field.FieldName, field.Value.Type,
		text, number, boolean, date, jsonDoc,
		field.SmartCode, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert dynamic field %q: %w", field.FieldName, err)
	}
	return nil
}

func (r *dynamicFieldRepository) ListByEntity(ctx context.Context, orgID, entityID uuid.UUID) ([]*models.DynamicField, error) {
	rows, err := r.q.Query(ctx, `SELECT `+dynamicFieldColumns+`
		FROM core_dynamic_data
		WHERE organization_id = $1 AND entity_id = $2
		ORDER BY field_name`, orgID, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dynamic fields: %w", err)
	}
	defer rows.Close()
	return collectDynamicFields(rows)
}

func (r *dynamicFieldRepository) ListByEntities(ctx context.Context, orgID uuid.UUID, entityIDs []uuid.UUID) (map[uuid.UUID][]*models.DynamicField, error) {
	result := make(map[uuid.UUID][]*models.DynamicField, len(entityIDs))
	if len(entityIDs) == 0 {
		return result, nil
	}

	rows, err := r.q.Query(ctx, `SELECT `+dynamicFieldColumns+`
		FROM core_dynamic_data
		WHERE organization_id = $1 AND entity_id = ANY($2)
		ORDER BY entity_id, field_name`, orgID, entityIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query dynamic fields: %w", err)
	}
	defer rows.Close()

	fields, err := collectDynamicFields(rows)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		result[f.EntityID] = append(result[f.EntityID], f)
	}
	return result, nil
}

func (r *dynamicFieldRepository) DeleteByEntity(ctx context.Context, orgID, entityID uuid.UUID) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM core_dynamic_data WHERE organization_id = $1 AND entity_id = $2`,
		orgID, entityID)
	if err != nil {
		return fmt.Errorf("failed to delete dynamic fields: %w", err)
	}
	return nil
}

func collectDynamicFields(rows pgx.Rows) ([]*models.DynamicField, error) {
	var fields []*models.DynamicField
	for rows.Next() {
		f, err := scanDynamicField(rows)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dynamic fields: %w", err)
	}
	return fields, nil
}

func scanDynamicField(row pgx.Row) (*models.DynamicField, error) {
	var (
		f         models.DynamicField
		fieldType models.FieldType
		text      *string
		number    *decimal.Decimal
		boolean   *bool
		date      *time.Time
		jsonDoc   json.RawMessage
	)
	err := row.Scan(&f.ID, &f.OrganizationID, &f.EntityID, &f.FieldName, &fieldType,
		&text, &number, &boolean, &date, &jsonDoc,
		&f.SmartCode, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}

	switch fieldType {
	case models.FieldTypeText:
		if text != nil {
			f.Value = models.TextValue(*text)
		}
	case models.FieldTypeNumber:
		if number != nil {
			f.Value = models.NumberValue(*number)
		}
	case models.FieldTypeBoolean:
		if boolean != nil {
			f.Value = models.BooleanValue(*boolean)
		}
	case models.FieldTypeDate:
		if date != nil {
			f.Value = models.DateValue(*date)
		}
	case models.FieldTypeJSON:
		f.Value = models.JSONValue(jsonDoc)
	default:
		return nil, fmt.Errorf("row %s has unknown field type %q", f.ID, fieldType)
	}
	if f.Value.Type == "" {
		return nil, fmt.Errorf("row %s has field type %q but no value in the matching slot", f.ID, fieldType)
	}
	return &f, nil
}
