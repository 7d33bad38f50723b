package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/apperrors"
	"github.com/heraerp/hera-engine/pkg/models"
	"github.com/heraerp/hera-engine/pkg/repositories"
	"github.com/heraerp/hera-engine/pkg/smartcode"
)

// EntityUpsert is the write payload for the entity engine. Supplying an ID
// that already exists in the organization turns the call into an update;
// otherwise it inserts (with the supplied id, if any).
type EntityUpsert struct {
	ID              uuid.UUID                  `json:"id,omitempty"`
	EntityType      string                     `json:"entity_type"`
	Name            string                     `json:"entity_name"`
	Code            string                     `json:"entity_code,omitempty"`
	SmartCode       string                     `json:"smart_code"`
	Status          string                     `json:"status,omitempty"`
	Metadata        json.RawMessage            `json:"metadata,omitempty"`
	ExpectedVersion *int                       `json:"expected_version,omitempty"`
	Fields          []models.DynamicFieldInput `json:"dynamic_fields,omitempty"`
}

// EntityService is the entity engine: entities and their dynamic fields as
// one logical unit.
type EntityService interface {
	Upsert(ctx context.Context, orgID, actorID uuid.UUID, payload EntityUpsert) (*models.EntityWithFields, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.EntityWithFields, error)
	List(ctx context.Context, orgID uuid.UUID, filter models.EntityFilter) ([]*models.EntityWithFields, error)
	Delete(ctx context.Context, orgID, actorID, id uuid.UUID, hard bool) error
}

type entityService struct {
	store  TxStore
	repos  repositories.Repos
	logger *zap.Logger
}

// NewEntityService creates the entity engine over the given store.
func NewEntityService(store TxStore, repos repositories.Repos, logger *zap.Logger) EntityService {
	return &entityService{store: store, repos: repos, logger: logger}
}

// validateUpsert runs every check that must pass before a single row is
// written: validate-then-commit, never commit-then-repair.
func validateUpsert(payload *EntityUpsert) error {
	if payload.EntityType == "" {
		return apperrors.NewValidation("entity_type", "must not be empty")
	}
	if payload.Name == "" {
		return apperrors.NewValidation("entity_name", "must not be empty")
	}
	if err := smartcode.Validate(payload.SmartCode); err != nil {
		return err
	}
	seen := make(map[string]bool, len(payload.Fields))
	for i := range payload.Fields {
		f := &payload.Fields[i]
		if f.FieldName == "" {
			return apperrors.NewValidation("field_name", "must not be empty")
		}
		if seen[f.FieldName] {
			return apperrors.NewValidation(f.FieldName, "supplied more than once")
		}
		seen[f.FieldName] = true
		if !f.Value.Type.Valid() {
			return apperrors.NewValidation(f.FieldName,
				fmt.Sprintf("unknown field type %q", f.Value.Type))
		}
		if err := smartcode.Validate(f.SmartCode); err != nil {
			return err
		}
	}
	return nil
}

func (s *entityService) Upsert(ctx context.Context, orgID, actorID uuid.UUID, payload EntityUpsert) (*models.EntityWithFields, error) {
	if err := validateUpsert(&payload); err != nil {
		return nil, err
	}

	var existing *models.Entity
	if payload.ID != uuid.Nil {
		found, err := s.repos.Entities.FindAnyOrg(ctx, payload.ID)
		if err != nil {
			return nil, err
		}
		if found != nil && found.OrganizationID != orgID {
			return nil, apperrors.NewCrossOrg("entity", payload.ID, orgID)
		}
		existing = found
	}

	// An omitted status means "leave it alone" on update, active on insert.
	// Defaulting to active unconditionally would silently reactivate an
	// archived entity.
	if payload.Status == "" {
		if existing != nil {
			payload.Status = existing.Status
		} else {
			payload.Status = models.EntityStatusActive
		}
	}

	if existing == nil {
		return s.insert(ctx, orgID, actorID, payload)
	}
	return s.update(ctx, orgID, actorID, payload, existing)
}

func (s *entityService) insert(ctx context.Context, orgID, actorID uuid.UUID, payload EntityUpsert) (*models.EntityWithFields, error) {
	if payload.Code != "" {
		exists, err := s.repos.Entities.CodeExists(ctx, orgID, payload.EntityType, payload.Code, payload.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.NewDuplicateCode("entity", payload.Code)
		}
	}

	entity := &models.Entity{
		ID:             payload.ID,
		OrganizationID: orgID,
		EntityType:     payload.EntityType,
		Name:           payload.Name,
		Code:           payload.Code,
		SmartCode:      payload.SmartCode,
		Status:         payload.Status,
		Metadata:       payload.Metadata,
		CreatedBy:      actorRef(actorID),
		UpdatedBy:      actorRef(actorID),
	}

	err := s.store.WithinTx(ctx, func(r repositories.Repos) error {
		if err := r.Entities.Insert(ctx, entity); err != nil {
			return err
		}
		return upsertFields(ctx, r, entity, payload.Fields)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("entity created",
		zap.String("organization_id", orgID.String()),
		zap.String("entity_id", entity.ID.String()),
		zap.String("entity_type", entity.EntityType))

	return s.Get(ctx, orgID, entity.ID)
}

func (s *entityService) update(ctx context.Context, orgID, actorID uuid.UUID, payload EntityUpsert, existing *models.Entity) (*models.EntityWithFields, error) {
	expectedVersion := existing.Version
	if payload.ExpectedVersion != nil {
		expectedVersion = *payload.ExpectedVersion
	}

	currentFields, err := s.repos.Fields.ListByEntity(ctx, orgID, existing.ID)
	if err != nil {
		return nil, err
	}

	// Idempotent upsert: an update that changes nothing keeps the stored
	// state and the version untouched.
	if expectedVersion == existing.Version && isNoChange(payload, existing, currentFields) {
		return s.Get(ctx, orgID, existing.ID)
	}

	if payload.Code != "" && payload.Code != existing.Code {
		exists, err := s.repos.Entities.CodeExists(ctx, orgID, payload.EntityType, payload.Code, existing.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.NewDuplicateCode("entity", payload.Code)
		}
	}

	entity := &models.Entity{
		ID:             existing.ID,
		OrganizationID: orgID,
		EntityType:     payload.EntityType,
		Name:           payload.Name,
		Code:           payload.Code,
		SmartCode:      payload.SmartCode,
		Status:         payload.Status,
		Metadata:       payload.Metadata,
		UpdatedBy:      actorRef(actorID),
	}

	err = s.store.WithinTx(ctx, func(r repositories.Repos) error {
		if err := r.Entities.Update(ctx, entity, expectedVersion); err != nil {
			return err
		}
		return upsertFields(ctx, r, entity, payload.Fields)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("entity updated",
		zap.String("organization_id", orgID.String()),
		zap.String("entity_id", entity.ID.String()),
		zap.Int("version", entity.Version))

	return s.Get(ctx, orgID, entity.ID)
}

// upsertFields writes the supplied dynamic fields; fields not named in the
// payload are left in place (merge, not replace-all).
func upsertFields(ctx context.Context, r repositories.Repos, entity *models.Entity, inputs []models.DynamicFieldInput) error {
	for _, in := range inputs {
		field := &models.DynamicField{
			OrganizationID: entity.OrganizationID,
			EntityID:       entity.ID,
			FieldName:      in.FieldName,
			Value:          in.Value,
			SmartCode:      in.SmartCode,
		}
		if err := r.Fields.Upsert(ctx, field); err != nil {
			return err
		}
	}
	return nil
}

func isNoChange(payload EntityUpsert, existing *models.Entity, currentFields []*models.DynamicField) bool {
	if payload.EntityType != existing.EntityType ||
		payload.Name != existing.Name ||
		payload.Code != existing.Code ||
		payload.SmartCode != existing.SmartCode ||
		payload.Status != existing.Status {
		return false
	}
	if !jsonEqual(payload.Metadata, existing.Metadata) {
		return false
	}
	byName := make(map[string]*models.DynamicField, len(currentFields))
	for _, f := range currentFields {
		byName[f.FieldName] = f
	}
	for _, in := range payload.Fields {
		current, ok := byName[in.FieldName]
		if !ok || !current.Value.Equal(in.Value) || current.SmartCode != in.SmartCode {
			return false
		}
	}
	return true
}

func jsonEqual(a, b json.RawMessage) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return bytes.Equal(a, b)
}

func (s *entityService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.EntityWithFields, error) {
	entity, err := s.repos.Entities.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	fields, err := s.repos.Fields.ListByEntity(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return flatten(entity, fields), nil
}

func (s *entityService) List(ctx context.Context, orgID uuid.UUID, filter models.EntityFilter) ([]*models.EntityWithFields, error) {
	entities, err := s.repos.Entities.List(ctx, orgID, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	fieldsByEntity, err := s.repos.Fields.ListByEntities(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*models.EntityWithFields, len(entities))
	for i, e := range entities {
		result[i] = flatten(e, fieldsByEntity[e.ID])
	}
	return result, nil
}

func (s *entityService) Delete(ctx context.Context, orgID, actorID, id uuid.UUID, hard bool) error {
	found, err := s.repos.Entities.FindAnyOrg(ctx, id)
	if err != nil {
		return err
	}
	if found == nil {
		return apperrors.NewReferential("entity", id)
	}
	if found.OrganizationID != orgID {
		return apperrors.NewCrossOrg("entity", id, orgID)
	}

	if !hard {
		return s.repos.Entities.SetStatus(ctx, orgID, id, models.EntityStatusArchived, actorRef(actorID))
	}

	// Hard delete removes the entity, its fields and every edge touching it
	// as one atomic unit.
	err = s.store.WithinTx(ctx, func(r repositories.Repos) error {
		if err := r.Relationships.DeleteByEntity(ctx, orgID, id); err != nil {
			return err
		}
		if err := r.Fields.DeleteByEntity(ctx, orgID, id); err != nil {
			return err
		}
		return r.Entities.DeleteHard(ctx, orgID, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("entity hard-deleted",
		zap.String("organization_id", orgID.String()),
		zap.String("entity_id", id.String()))
	return nil
}

func flatten(entity *models.Entity, fields []*models.DynamicField) *models.EntityWithFields {
	out := &models.EntityWithFields{Entity: *entity}
	if len(fields) > 0 {
		out.Fields = make(map[string]models.FieldValue, len(fields))
		for _, f := range fields {
			out.Fields[f.FieldName] = f.Value
		}
	}
	return out
}

// actorRef converts an actor id into the nullable audit reference stored on
// rows; uuid.Nil means "unattributed" and stores NULL.
func actorRef(actorID uuid.UUID) *uuid.UUID {
	if actorID == uuid.Nil {
		return nil
	}
	return &actorID
}
