package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization status constants.
const (
	OrgStatusActive   = "active"
	OrgStatusArchived = "archived"
)

// Organization is the tenant boundary. Every other row in the universal
// schema belongs to exactly one organization, and no query may cross that
// boundary implicitly.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"organization_name"`
	Code      string    `json:"organization_code"` // unique across all tenants
	Type      string    `json:"organization_type"` // e.g. "business_unit", "franchise"
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
