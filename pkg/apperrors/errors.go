// Package apperrors defines the engine's recoverable error taxonomy. Every
// engine error wraps one of the sentinel values below so callers branch with
// errors.Is; the typed wrappers carry the offending id, code or amount so
// callers can surface a specific message instead of a generic failure.
// Storage-layer unavailability is not part of the taxonomy and propagates
// unchanged.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrCrossOrgAccess = errors.New("cross-organization access")
	ErrDuplicateCode  = errors.New("duplicate code")
	ErrCycle          = errors.New("relationship cycle")
	ErrStaleVersion   = errors.New("stale version")
	ErrImbalance      = errors.New("unbalanced transaction")
	ErrActorNotFound  = errors.New("actor not found")
)

// ValidationError reports a malformed smart code, a type-mismatched field
// value or a missing required attribute. It is always raised before any row
// is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation builds a ValidationError for the given field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ReferentialError reports a missing entity, relationship or transaction,
// identified by kind and id.
type ReferentialError struct {
	Kind string // "entity", "relationship", "transaction", "organization"
	ID   uuid.UUID
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *ReferentialError) Unwrap() error { return ErrNotFound }

// NewReferential builds a ReferentialError for the given kind and id.
func NewReferential(kind string, id uuid.UUID) error {
	return &ReferentialError{Kind: kind, ID: id}
}

// CrossOrgAccessError reports that a supplied id resolves to a different
// organization than the caller's context. It is never silently filtered.
type CrossOrgAccessError struct {
	Kind  string
	ID    uuid.UUID
	OrgID uuid.UUID // the caller's organization, not the row's
}

func (e *CrossOrgAccessError) Error() string {
	return fmt.Sprintf("%s %s does not belong to organization %s", e.Kind, e.ID, e.OrgID)
}

func (e *CrossOrgAccessError) Unwrap() error { return ErrCrossOrgAccess }

// NewCrossOrg builds a CrossOrgAccessError.
func NewCrossOrg(kind string, id, orgID uuid.UUID) error {
	return &CrossOrgAccessError{Kind: kind, ID: id, OrgID: orgID}
}

// DuplicateCodeError reports an organization-scoped uniqueness collision.
type DuplicateCodeError struct {
	Kind string
	Code string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("%s code %q already exists in this organization", e.Kind, e.Code)
}

func (e *DuplicateCodeError) Unwrap() error { return ErrDuplicateCode }

// NewDuplicateCode builds a DuplicateCodeError.
func NewDuplicateCode(kind, code string) error {
	return &DuplicateCodeError{Kind: kind, Code: code}
}

// CycleError reports that a hierarchical relationship would close a cycle.
// Path lists the entity ids walked from the proposed child back to the
// proposed parent.
type CycleError struct {
	RelationshipType string
	Path             []uuid.UUID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s relationship would create a cycle (%d nodes in path)",
		e.RelationshipType, len(e.Path))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// StaleVersionError reports an optimistic-concurrency conflict on an entity
// update.
type StaleVersionError struct {
	EntityID uuid.UUID
	Expected int
}

func (e *StaleVersionError) Error() string {
	return fmt.Sprintf("entity %s was modified concurrently (expected version %d)",
		e.EntityID, e.Expected)
}

func (e *StaleVersionError) Unwrap() error { return ErrStaleVersion }

// ImbalanceError reports that transaction lines do not reconcile: either
// against the caller-supplied header total, or debits against credits during
// ledger posting.
type ImbalanceError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("transaction does not balance: expected %s, got %s",
		e.Expected, e.Actual)
}

func (e *ImbalanceError) Unwrap() error { return ErrImbalance }

// ActorNotFoundError reports that an introspection actor id does not exist at
// all. A missing membership is not an error; this is.
type ActorNotFoundError struct {
	ActorID uuid.UUID
}

func (e *ActorNotFoundError) Error() string {
	return fmt.Sprintf("actor entity %s not found", e.ActorID)
}

func (e *ActorNotFoundError) Unwrap() error { return ErrActorNotFound }
