package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/heraerp/hera-engine/pkg/models"
	"github.com/heraerp/hera-engine/pkg/services"
)

// mockEntityService is a configurable mock for testing EntityHandler.
type mockEntityService struct {
	entity   *models.EntityWithFields
	entities []*models.EntityWithFields
	err      error

	capturedOrgID   uuid.UUID
	capturedActorID uuid.UUID
	capturedPayload services.EntityUpsert
	capturedHard    bool
}

func (m *mockEntityService) Upsert(ctx context.Context, orgID, actorID uuid.UUID, payload services.EntityUpsert) (*models.EntityWithFields, error) {
	m.capturedOrgID = orgID
	m.capturedActorID = actorID
	m.capturedPayload = payload
	if m.err != nil {
		return nil, m.err
	}
	return m.entity, nil
}

func (m *mockEntityService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.EntityWithFields, error) {
	m.capturedOrgID = orgID
	if m.err != nil {
		return nil, m.err
	}
	return m.entity, nil
}

func (m *mockEntityService) List(ctx context.Context, orgID uuid.UUID, filter models.EntityFilter) ([]*models.EntityWithFields, error) {
	m.capturedOrgID = orgID
	if m.err != nil {
		return nil, m.err
	}
	return m.entities, nil
}

func (m *mockEntityService) Delete(ctx context.Context, orgID, actorID, id uuid.UUID, hard bool) error {
	m.capturedOrgID = orgID
	m.capturedActorID = actorID
	m.capturedHard = hard
	return m.err
}

// mockTransactionService is a configurable mock for testing TransactionHandler.
type mockTransactionService struct {
	tx  *models.TransactionWithLines
	txs []*models.Transaction
	err error

	capturedReason string
}

func (m *mockTransactionService) Create(ctx context.Context, orgID, actorID uuid.UUID, input services.TransactionInput) (*models.TransactionWithLines, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tx, nil
}

func (m *mockTransactionService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.TransactionWithLines, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tx, nil
}

func (m *mockTransactionService) List(ctx context.Context, orgID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.txs, nil
}

func (m *mockTransactionService) PostToLedger(ctx context.Context, orgID, id uuid.UUID) (*models.TransactionWithLines, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tx, nil
}

func (m *mockTransactionService) Void(ctx context.Context, orgID, actorID, id uuid.UUID, reason string) (*models.TransactionWithLines, error) {
	m.capturedReason = reason
	if m.err != nil {
		return nil, m.err
	}
	return m.tx, nil
}

// mockIntrospectionService is a configurable mock for testing IntrospectHandler.
type mockIntrospectionService struct {
	access *models.ActorAccess
	err    error

	capturedActorID uuid.UUID
}

func (m *mockIntrospectionService) Introspect(ctx context.Context, actorID uuid.UUID) (*models.ActorAccess, error) {
	m.capturedActorID = actorID
	if m.err != nil {
		return nil, m.err
	}
	return m.access, nil
}
