package services

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/heraerp/hera-engine/pkg/apperrors"
	"github.com/heraerp/hera-engine/pkg/models"
	"github.com/heraerp/hera-engine/pkg/repositories"
)

// memStore is an in-memory stand-in for the repository bundle. It keeps the
// semantics the services depend on (org scoping, version compare-and-swap,
// unique codes, active-edge traversal) without a database.
type memStore struct {
	orgs     map[uuid.UUID]*models.Organization
	entities map[uuid.UUID]*models.Entity
	fields   map[uuid.UUID]map[string]*models.DynamicField
	rels     map[uuid.UUID]*models.Relationship
	txs      map[uuid.UUID]*models.Transaction
	lines    map[uuid.UUID][]*models.TransactionLine

	// inTx is true while a WithinTx/WithinSnapshotTx callback runs; repos
	// record it so tests can assert which calls shared a transaction.
	inTx              bool
	relListFromInTx   bool
	relInsertInTx     bool
	snapshotTxEntered int
}

func newMemStore() *memStore {
	return &memStore{
		orgs:     make(map[uuid.UUID]*models.Organization),
		entities: make(map[uuid.UUID]*models.Entity),
		fields:   make(map[uuid.UUID]map[string]*models.DynamicField),
		rels:     make(map[uuid.UUID]*models.Relationship),
		txs:      make(map[uuid.UUID]*models.Transaction),
		lines:    make(map[uuid.UUID][]*models.TransactionLine),
	}
}

func (m *memStore) repos() repositories.Repos {
	return repositories.Repos{
		Organizations: (*memOrgRepo)(m),
		Entities:      (*memEntityRepo)(m),
		Fields:        (*memFieldRepo)(m),
		Relationships: (*memRelRepo)(m),
		Transactions:  (*memTxRepo)(m),
	}
}

// WithinTx satisfies TxStore. Unit tests exercise validate-then-commit
// ordering, not rollback, so fn runs against the same maps.
func (m *memStore) WithinTx(ctx context.Context, fn func(repositories.Repos) error) error {
	m.inTx = true
	defer func() { m.inTx = false }()
	return fn(m.repos())
}

func (m *memStore) WithinSnapshotTx(ctx context.Context, fn func(repositories.Repos) error) error {
	m.snapshotTxEntered++
	return m.WithinTx(ctx, fn)
}

// seedOrg, seedEntity and seedRel cut down on test boilerplate.

func (m *memStore) seedOrg(name, code string) *models.Organization {
	org := &models.Organization{ID: uuid.New(), Name: name, Code: code, Status: models.OrgStatusActive}
	m.orgs[org.ID] = org
	return org
}

func (m *memStore) seedEntity(orgID uuid.UUID, entityType, name, code, smartCode string) *models.Entity {
	e := &models.Entity{
		ID:             uuid.New(),
		OrganizationID: orgID,
		EntityType:     entityType,
		Name:           name,
		Code:           code,
		SmartCode:      smartCode,
		Status:         models.EntityStatusActive,
		Version:        1,
	}
	m.entities[e.ID] = e
	return e
}

func (m *memStore) seedRel(orgID, from, to uuid.UUID, relType, smartCode string) *models.Relationship {
	rel := &models.Relationship{
		ID:               uuid.New(),
		OrganizationID:   orgID,
		FromEntityID:     from,
		ToEntityID:       to,
		RelationshipType: relType,
		SmartCode:        smartCode,
		IsActive:         true,
	}
	m.rels[rel.ID] = rel
	return rel
}

type memOrgRepo memStore

func (m *memOrgRepo) Create(ctx context.Context, org *models.Organization) error {
	for _, existing := range m.orgs {
		if existing.Code == org.Code {
			return apperrors.NewDuplicateCode("organization", org.Code)
		}
	}
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	m.orgs[org.ID] = org
	return nil
}

func (m *memOrgRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	if org, ok := m.orgs[id]; ok {
		return org, nil
	}
	return nil, apperrors.NewReferential("organization", id)
}

func (m *memOrgRepo) GetByCode(ctx context.Context, code string) (*models.Organization, error) {
	for _, org := range m.orgs {
		if org.Code == code {
			return org, nil
		}
	}
	return nil, apperrors.NewReferential("organization", uuid.Nil)
}

func (m *memOrgRepo) List(ctx context.Context) ([]*models.Organization, error) {
	var out []*models.Organization
	for _, org := range m.orgs {
		out = append(out, org)
	}
	return out, nil
}

type memEntityRepo memStore

func (m *memEntityRepo) Insert(ctx context.Context, entity *models.Entity) error {
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	if entity.Code != "" {
		exists, _ := m.CodeExists(ctx, entity.OrganizationID, entity.EntityType, entity.Code, entity.ID)
		if exists {
			return apperrors.NewDuplicateCode("entity", entity.Code)
		}
	}
	if entity.Version == 0 {
		entity.Version = 1
	}
	m.entities[entity.ID] = entity
	return nil
}

func (m *memEntityRepo) Update(ctx context.Context, entity *models.Entity, expectedVersion int) error {
	current, ok := m.entities[entity.ID]
	if !ok || current.OrganizationID != entity.OrganizationID {
		return apperrors.NewReferential("entity", entity.ID)
	}
	if current.Version != expectedVersion {
		return &apperrors.StaleVersionError{EntityID: entity.ID, Expected: expectedVersion}
	}
	entity.Version = expectedVersion + 1
	m.entities[entity.ID] = entity
	return nil
}

func (m *memEntityRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Entity, error) {
	e, ok := m.entities[id]
	if !ok || e.OrganizationID != orgID {
		return nil, apperrors.NewReferential("entity", id)
	}
	return e, nil
}

func (m *memEntityRepo) FindAnyOrg(ctx context.Context, id uuid.UUID) (*models.Entity, error) {
	if e, ok := m.entities[id]; ok {
		return e, nil
	}
	return nil, nil
}

func (m *memEntityRepo) List(ctx context.Context, orgID uuid.UUID, filter models.EntityFilter) ([]*models.Entity, error) {
	var out []*models.Entity
	for _, e := range m.entities {
		if e.OrganizationID != orgID {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.Code != "" && e.Code != filter.Code {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.NameLike != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(filter.NameLike)) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memEntityRepo) SetStatus(ctx context.Context, orgID, id uuid.UUID, status string, updatedBy *uuid.UUID) error {
	e, ok := m.entities[id]
	if !ok || e.OrganizationID != orgID {
		return apperrors.NewReferential("entity", id)
	}
	e.Status = status
	e.UpdatedBy = updatedBy
	return nil
}

func (m *memEntityRepo) DeleteHard(ctx context.Context, orgID, id uuid.UUID) error {
	e, ok := m.entities[id]
	if !ok || e.OrganizationID != orgID {
		return apperrors.NewReferential("entity", id)
	}
	delete(m.entities, id)
	return nil
}

func (m *memEntityRepo) CodeExists(ctx context.Context, orgID uuid.UUID, entityType, code string, excludeID uuid.UUID) (bool, error) {
	for _, e := range m.entities {
		if e.ID == excludeID {
			continue
		}
		if e.OrganizationID == orgID && e.EntityType == entityType && e.Code == code {
			return true, nil
		}
	}
	return false, nil
}

type memFieldRepo memStore

func (m *memFieldRepo) Upsert(ctx context.Context, field *models.DynamicField) error {
	if field.ID == uuid.Nil {
		field.ID = uuid.New()
	}
	byName, ok := m.fields[field.EntityID]
	if !ok {
		byName = make(map[string]*models.DynamicField)
		m.fields[field.EntityID] = byName
	}
	byName[field.FieldName] = field
	return nil
}

func (m *memFieldRepo) ListByEntity(ctx context.Context, orgID, entityID uuid.UUID) ([]*models.DynamicField, error) {
	var out []*models.DynamicField
	for _, f := range m.fields[entityID] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FieldName < out[j].FieldName })
	return out, nil
}

func (m *memFieldRepo) ListByEntities(ctx context.Context, orgID uuid.UUID, entityIDs []uuid.UUID) (map[uuid.UUID][]*models.DynamicField, error) {
	out := make(map[uuid.UUID][]*models.DynamicField)
	for _, id := range entityIDs {
		fields, err := m.ListByEntity(ctx, orgID, id)
		if err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			out[id] = fields
		}
	}
	return out, nil
}

func (m *memFieldRepo) DeleteByEntity(ctx context.Context, orgID, entityID uuid.UUID) error {
	delete(m.fields, entityID)
	return nil
}

type memRelRepo memStore

func (m *memRelRepo) Insert(ctx context.Context, rel *models.Relationship) error {
	m.relInsertInTx = m.inTx
	for _, existing := range m.rels {
		if existing.OrganizationID == rel.OrganizationID &&
			existing.FromEntityID == rel.FromEntityID &&
			existing.ToEntityID == rel.ToEntityID &&
			existing.RelationshipType == rel.RelationshipType {
			return apperrors.NewDuplicateCode("relationship", rel.RelationshipType)
		}
	}
	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	m.rels[rel.ID] = rel
	return nil
}

func (m *memRelRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Relationship, error) {
	rel, ok := m.rels[id]
	if !ok || rel.OrganizationID != orgID {
		return nil, apperrors.NewReferential("relationship", id)
	}
	return rel, nil
}

func (m *memRelRepo) List(ctx context.Context, orgID uuid.UUID, filter models.RelationshipFilter) ([]*models.Relationship, error) {
	var out []*models.Relationship
	for _, rel := range m.rels {
		if rel.OrganizationID != orgID {
			continue
		}
		if filter.RelationshipType != "" && rel.RelationshipType != filter.RelationshipType {
			continue
		}
		if filter.FromEntityID != uuid.Nil && rel.FromEntityID != filter.FromEntityID {
			continue
		}
		if filter.ToEntityID != uuid.Nil && rel.ToEntityID != filter.ToEntityID {
			continue
		}
		if filter.ActiveOnly && !rel.IsActive {
			continue
		}
		out = append(out, rel)
	}
	return out, nil
}

func (m *memRelRepo) ListFrom(ctx context.Context, orgID, fromEntityID uuid.UUID, relType string) ([]*models.Relationship, error) {
	m.relListFromInTx = m.inTx
	var out []*models.Relationship
	for _, rel := range m.rels {
		if rel.OrganizationID == orgID && rel.FromEntityID == fromEntityID &&
			rel.RelationshipType == relType && rel.IsActive {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (m *memRelRepo) ListFromAllOrgs(ctx context.Context, fromEntityID uuid.UUID, relType string) ([]*models.Relationship, error) {
	var out []*models.Relationship
	for _, rel := range m.rels {
		if rel.FromEntityID == fromEntityID && rel.RelationshipType == relType && rel.IsActive {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (m *memRelRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	if rel, ok := m.rels[id]; ok && rel.OrganizationID == orgID {
		delete(m.rels, id)
	}
	return nil
}

func (m *memRelRepo) DeleteByEntity(ctx context.Context, orgID, entityID uuid.UUID) error {
	for id, rel := range m.rels {
		if rel.OrganizationID == orgID && (rel.FromEntityID == entityID || rel.ToEntityID == entityID) {
			delete(m.rels, id)
		}
	}
	return nil
}

type memTxRepo memStore

func (m *memTxRepo) InsertHeader(ctx context.Context, tx *models.Transaction) error {
	for _, existing := range m.txs {
		if existing.OrganizationID == tx.OrganizationID && existing.Code == tx.Code {
			return apperrors.NewDuplicateCode("transaction", tx.Code)
		}
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	m.txs[tx.ID] = tx
	return nil
}

func (m *memTxRepo) InsertLine(ctx context.Context, line *models.TransactionLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	m.lines[line.TransactionID] = append(m.lines[line.TransactionID], line)
	return nil
}

func (m *memTxRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Transaction, error) {
	tx, ok := m.txs[id]
	if !ok || tx.OrganizationID != orgID {
		return nil, apperrors.NewReferential("transaction", id)
	}
	return tx, nil
}

func (m *memTxRepo) ListLines(ctx context.Context, orgID, transactionID uuid.UUID) ([]*models.TransactionLine, error) {
	out := append([]*models.TransactionLine(nil), m.lines[transactionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out, nil
}

func (m *memTxRepo) List(ctx context.Context, orgID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, tx := range m.txs {
		if tx.OrganizationID != orgID {
			continue
		}
		if filter.TransactionType != "" && tx.TransactionType != filter.TransactionType {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (m *memTxRepo) UpdateStatus(ctx context.Context, orgID, id uuid.UUID, fromStatus, toStatus string) error {
	tx, ok := m.txs[id]
	if !ok || tx.OrganizationID != orgID {
		return apperrors.NewReferential("transaction", id)
	}
	if tx.Status != fromStatus {
		return apperrors.NewValidation("transaction_status",
			"cannot transition from "+tx.Status+" to "+toStatus)
	}
	tx.Status = toStatus
	return nil
}

func (m *memTxRepo) NextLineNumber(ctx context.Context, orgID, transactionID uuid.UUID) (int, error) {
	max := 0
	for _, line := range m.lines[transactionID] {
		if line.LineNumber > max {
			max = line.LineNumber
		}
	}
	return max + 1, nil
}
