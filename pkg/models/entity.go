package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entity status constants. An entity is logically retired via status, never
// structurally migrated; hard deletion is an explicit separate operation.
const (
	EntityStatusActive   = "active"
	EntityStatusArchived = "archived"
)

// Well-known entity types used by the identity graph. entity_type is an open
// tag, not a closed enum; these constants exist so the authorization resolver
// and its callers agree on spelling.
const (
	EntityTypeUser = "USER"
	EntityTypeRole = "ROLE"
	EntityTypeApp  = "APP"
	EntityTypeOrg  = "ORG_ANCHOR"
)

// Entity is the generic representation of any addressable business object:
// a customer, a product, a GL account, a user, a role. Domain meaning comes
// from entity_type and the smart code, not from the table shape.
type Entity struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	EntityType     string          `json:"entity_type"`
	Name           string          `json:"entity_name"`
	Code           string          `json:"entity_code"`
	SmartCode      string          `json:"smart_code"`
	Status         string          `json:"status"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	Version        int             `json:"version"`
	CreatedBy      *uuid.UUID      `json:"created_by,omitempty"`
	UpdatedBy      *uuid.UUID      `json:"updated_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// EntityWithFields is the flattened read shape: the entity row plus its
// dynamic fields keyed by field name.
type EntityWithFields struct {
	Entity
	Fields map[string]FieldValue `json:"dynamic_fields,omitempty"`
}

// EntityFilter narrows entity reads. The organization predicate is not part
// of the filter because it is mandatory on every read path, not optional.
type EntityFilter struct {
	EntityType string
	Code       string
	Status     string
	NameLike   string // case-insensitive substring match on entity_name
}
