package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Identity-graph relationship types consumed by the authorization resolver.
// Business edges (parent_of, etc.) are open strings; only these three have
// engine-level meaning.
const (
	RelTypeMemberOf  = "MEMBER_OF"
	RelTypeHasRole   = "HAS_ROLE"
	RelTypeOrgHasApp = "ORG_HAS_APP"
)

// Hierarchy relationship types that are cycle-checked on create and eligible
// for rollup traversal.
const (
	RelTypeParentOf  = "parent_of"
	RelTypeChildOf   = "child_of"
	RelTypeReportsTo = "reports_to"
)

var hierarchicalTypes = map[string]bool{
	RelTypeParentOf:  true,
	RelTypeChildOf:   true,
	RelTypeReportsTo: true,
}

// IsHierarchicalType reports whether edges of this type form a business tree
// and therefore must stay acyclic.
func IsHierarchicalType(relType string) bool {
	return hierarchicalTypes[relType]
}

// Relationship is a directed, typed, organization-scoped edge between two
// entities. The same mechanism carries business hierarchies and identity
// facts (membership, role assignment, app entitlement).
type Relationship struct {
	ID               uuid.UUID       `json:"id"`
	OrganizationID   uuid.UUID       `json:"organization_id"`
	FromEntityID     uuid.UUID       `json:"from_entity_id"`
	ToEntityID       uuid.UUID       `json:"to_entity_id"`
	RelationshipType string          `json:"relationship_type"`
	SmartCode        string          `json:"smart_code"`
	Data             json.RawMessage `json:"relationship_data,omitempty"`
	IsActive         bool            `json:"is_active"`
	EffectiveDate    time.Time       `json:"effective_date"`
	CreatedBy        *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// RelationshipFilter narrows relationship reads within one organization.
type RelationshipFilter struct {
	FromEntityID     uuid.UUID
	ToEntityID       uuid.UUID
	RelationshipType string
	ActiveOnly       bool
}

// RollupNode is one node of a descendant tree produced by hierarchy rollup.
type RollupNode struct {
	EntityID   uuid.UUID     `json:"entity_id"`
	EntityName string        `json:"entity_name"`
	EntityCode string        `json:"entity_code"`
	Depth      int           `json:"depth"`
	Children   []*RollupNode `json:"children,omitempty"`
}
