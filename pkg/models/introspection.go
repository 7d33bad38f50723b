package models

import "github.com/google/uuid"

// OrgAccess describes what an actor can reach inside one organization.
type OrgAccess struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Code           string    `json:"organization_code"`
	Name           string    `json:"organization_name"`
	Role           string    `json:"role,omitempty"`
	Apps           []string  `json:"apps"`
}

// ActorAccess is the resolved authorization graph for one actor: every
// organization reachable through a membership edge, with role and app grants.
type ActorAccess struct {
	ActorID       uuid.UUID    `json:"actor_id"`
	Organizations []*OrgAccess `json:"organizations"`
}
