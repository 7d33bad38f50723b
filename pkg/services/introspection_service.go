package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/apperrors"
	"github.com/heraerp/hera-engine/pkg/models"
	"github.com/heraerp/hera-engine/pkg/repositories"
	"github.com/heraerp/hera-engine/pkg/smartcode"
)

// IntrospectionService resolves the authorization graph for an actor:
// which organizations the actor belongs to, the role held in each, and the
// apps granted to each organization. Resolution is pure graph walking over
// relationship edges, one hop per question, no recursion.
type IntrospectionService interface {
	Introspect(ctx context.Context, actorID uuid.UUID) (*models.ActorAccess, error)
}

type introspectionService struct {
	repos  repositories.Repos
	logger *zap.Logger
}

// NewIntrospectionService creates the authorization resolver.
func NewIntrospectionService(repos repositories.Repos, logger *zap.Logger) IntrospectionService {
	return &introspectionService{repos: repos, logger: logger}
}

func (s *introspectionService) Introspect(ctx context.Context, actorID uuid.UUID) (*models.ActorAccess, error) {
	// The actor is looked up without an org predicate: the actor's orgs are
	// exactly what we are here to discover.
	actor, err := s.repos.Entities.FindAnyOrg(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, &apperrors.ActorNotFoundError{ActorID: actorID}
	}

	// Membership edges carry the granted organization as their own
	// organization_id, so they are collected across all orgs in one pass.
	memberships, err := s.repos.Relationships.ListFromAllOrgs(ctx, actorID, models.RelTypeMemberOf)
	if err != nil {
		return nil, err
	}

	access := &models.ActorAccess{
		ActorID:       actorID,
		Organizations: []*models.OrgAccess{},
	}

	seen := make(map[uuid.UUID]bool)
	for _, membership := range memberships {
		orgID := membership.OrganizationID
		if seen[orgID] {
			continue
		}
		seen[orgID] = true

		org, err := s.repos.Organizations.GetByID(ctx, orgID)
		if err != nil {
			return nil, err
		}

		role, err := s.resolveRole(ctx, orgID, actorID)
		if err != nil {
			return nil, err
		}
		apps, err := s.resolveApps(ctx, orgID, membership.ToEntityID)
		if err != nil {
			return nil, err
		}

		access.Organizations = append(access.Organizations, &models.OrgAccess{
			OrganizationID: orgID,
			Code:           org.Code,
			Name:           org.Name,
			Role:           role,
			Apps:           apps,
		})
	}

	sort.Slice(access.Organizations, func(i, j int) bool {
		return access.Organizations[i].Code < access.Organizations[j].Code
	})

	s.logger.Debug("actor introspected",
		zap.String("actor_id", actorID.String()),
		zap.Int("organizations", len(access.Organizations)))
	return access, nil
}

// resolveRole follows the actor's HAS_ROLE edges within one organization and
// names the role from the target entity's smart code. The penultimate smart
// code segment is the role name (HERA.SEC.ROLE.ORG_OWNER.v1 -> ORG_OWNER);
// the entity code is the fallback when the smart code cannot be parsed.
func (s *introspectionService) resolveRole(ctx context.Context, orgID, actorID uuid.UUID) (string, error) {
	edges, err := s.repos.Relationships.ListFrom(ctx, orgID, actorID, models.RelTypeHasRole)
	if err != nil {
		return "", err
	}
	for _, edge := range edges {
		roleEntity, err := s.repos.Entities.GetByID(ctx, orgID, edge.ToEntityID)
		if err != nil {
			return "", err
		}
		if roleEntity.EntityType != models.EntityTypeRole {
			continue
		}
		if parsed, err := smartcode.Parse(roleEntity.SmartCode); err == nil && len(parsed.Segments) > 0 {
			return parsed.Segments[len(parsed.Segments)-1], nil
		}
		return roleEntity.Code, nil
	}
	return "", nil
}

// resolveApps walks ORG_HAS_APP edges from the membership target, normally
// the organization's anchor entity, and returns the app entity codes.
func (s *introspectionService) resolveApps(ctx context.Context, orgID, anchorID uuid.UUID) ([]string, error) {
	edges, err := s.repos.Relationships.ListFrom(ctx, orgID, anchorID, models.RelTypeOrgHasApp)
	if err != nil {
		return nil, err
	}
	apps := []string{}
	for _, edge := range edges {
		appEntity, err := s.repos.Entities.GetByID(ctx, orgID, edge.ToEntityID)
		if err != nil {
			return nil, err
		}
		if appEntity.EntityType != models.EntityTypeApp {
			continue
		}
		apps = append(apps, appEntity.Code)
	}
	sort.Strings(apps)
	return apps, nil
}
