package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/apperrors"
	"github.com/heraerp/hera-engine/pkg/models"
	"github.com/heraerp/hera-engine/pkg/repositories"
	"github.com/heraerp/hera-engine/pkg/smartcode"
)

// maxTraversalDepth bounds every graph walk. A legitimate business hierarchy
// never approaches this; hitting it means the data is corrupt.
const maxTraversalDepth = 10000

// RelationshipInput is the write payload for the relationship engine.
type RelationshipInput struct {
	FromEntityID     uuid.UUID       `json:"from_entity_id"`
	ToEntityID       uuid.UUID       `json:"to_entity_id"`
	RelationshipType string          `json:"relationship_type"`
	SmartCode        string          `json:"smart_code"`
	Data             json.RawMessage `json:"relationship_data,omitempty"`
	// Hierarchical forces the acyclicity check for types outside the
	// well-known hierarchy set.
	Hierarchical bool `json:"hierarchical,omitempty"`
}

// RelationshipService is the relationship engine: typed, directed edges that
// carry both business hierarchies and identity facts.
type RelationshipService interface {
	Create(ctx context.Context, orgID, actorID uuid.UUID, input RelationshipInput) (*models.Relationship, error)
	List(ctx context.Context, orgID uuid.UUID, filter models.RelationshipFilter) ([]*models.Relationship, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	Rollup(ctx context.Context, orgID, rootID uuid.UUID, relType string) (*models.RollupNode, error)
}

type relationshipService struct {
	store  TxStore
	repos  repositories.Repos
	logger *zap.Logger
}

// NewRelationshipService creates the relationship engine over the given store.
func NewRelationshipService(store TxStore, repos repositories.Repos, logger *zap.Logger) RelationshipService {
	return &relationshipService{store: store, repos: repos, logger: logger}
}

func (s *relationshipService) Create(ctx context.Context, orgID, actorID uuid.UUID, input RelationshipInput) (*models.Relationship, error) {
	if input.RelationshipType == "" {
		return nil, apperrors.NewValidation("relationship_type", "must not be empty")
	}
	if err := smartcode.Validate(input.SmartCode); err != nil {
		return nil, err
	}

	rel := &models.Relationship{
		OrganizationID:   orgID,
		FromEntityID:     input.FromEntityID,
		ToEntityID:       input.ToEntityID,
		RelationshipType: input.RelationshipType,
		SmartCode:        input.SmartCode,
		Data:             input.Data,
		IsActive:         true,
		CreatedBy:        actorRef(actorID),
	}

	// Endpoint checks, the cycle walk and the insert share one snapshot
	// transaction, so the graph the walk saw is the graph the edge joins.
	err := s.store.WithinSnapshotTx(ctx, func(r repositories.Repos) error {
		for _, id := range []uuid.UUID{input.FromEntityID, input.ToEntityID} {
			entity, err := r.Entities.FindAnyOrg(ctx, id)
			if err != nil {
				return err
			}
			if entity == nil {
				return apperrors.NewReferential("entity", id)
			}
			if entity.OrganizationID != orgID {
				return apperrors.NewCrossOrg("entity", id, orgID)
			}
		}

		if models.IsHierarchicalType(input.RelationshipType) || input.Hierarchical {
			if err := checkCycle(ctx, r, orgID, input); err != nil {
				return err
			}
		}
		return r.Relationships.Insert(ctx, rel)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("relationship created",
		zap.String("organization_id", orgID.String()),
		zap.String("relationship_type", rel.RelationshipType),
		zap.String("from", rel.FromEntityID.String()),
		zap.String("to", rel.ToEntityID.String()))
	return rel, nil
}

// checkCycle walks same-type edges outward from the proposed child. Reaching
// the proposed parent means the new edge would close a loop. The walk is
// iterative with an explicit queue and visited set, so it terminates even if
// existing data already contains a cycle.
func checkCycle(ctx context.Context, r repositories.Repos, orgID uuid.UUID, input RelationshipInput) error {
	if input.FromEntityID == input.ToEntityID {
		return &apperrors.CycleError{
			RelationshipType: input.RelationshipType,
			Path:             []uuid.UUID{input.FromEntityID},
		}
	}

	parent := make(map[uuid.UUID]uuid.UUID)
	visited := map[uuid.UUID]bool{input.ToEntityID: true}
	queue := []uuid.UUID{input.ToEntityID}

	for len(queue) > 0 && len(visited) < maxTraversalDepth {
		current := queue[0]
		queue = queue[1:]

		edges, err := r.Relationships.ListFrom(ctx, orgID, current, input.RelationshipType)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			next := edge.ToEntityID
			if visited[next] {
				continue
			}
			parent[next] = current
			if next == input.FromEntityID {
				return &apperrors.CycleError{
					RelationshipType: input.RelationshipType,
					Path:             pathTo(parent, input.ToEntityID, next),
				}
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return nil
}

// pathTo reconstructs the walk from start to end using the BFS parent map.
func pathTo(parent map[uuid.UUID]uuid.UUID, start, end uuid.UUID) []uuid.UUID {
	var reversed []uuid.UUID
	for cur := end; ; {
		reversed = append(reversed, cur)
		if cur == start {
			break
		}
		prev, ok := parent[cur]
		if !ok {
			break
		}
		cur = prev
	}
	path := make([]uuid.UUID, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}

func (s *relationshipService) List(ctx context.Context, orgID uuid.UUID, filter models.RelationshipFilter) ([]*models.Relationship, error) {
	return s.repos.Relationships.List(ctx, orgID, filter)
}

func (s *relationshipService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.repos.Relationships.Delete(ctx, orgID, id)
}

// Rollup returns the descendant tree under rootID following relType edges,
// breadth-first under one snapshot so a concurrent edge write cannot tear the
// tree mid-walk. A visited set keeps the traversal bounded even when upstream
// cycle validation was bypassed.
func (s *relationshipService) Rollup(ctx context.Context, orgID, rootID uuid.UUID, relType string) (*models.RollupNode, error) {
	var root *models.RollupNode
	err := s.store.WithinSnapshotTx(ctx, func(r repositories.Repos) error {
		rootEntity, err := r.Entities.GetByID(ctx, orgID, rootID)
		if err != nil {
			return err
		}

		root = &models.RollupNode{
			EntityID:   rootEntity.ID,
			EntityName: rootEntity.Name,
			EntityCode: rootEntity.Code,
		}
		nodes := map[uuid.UUID]*models.RollupNode{rootID: root}
		visited := map[uuid.UUID]bool{rootID: true}
		queue := []uuid.UUID{rootID}

		for len(queue) > 0 && len(visited) < maxTraversalDepth {
			current := queue[0]
			queue = queue[1:]
			currentNode := nodes[current]

			edges, err := r.Relationships.ListFrom(ctx, orgID, current, relType)
			if err != nil {
				return err
			}
			for _, edge := range edges {
				childID := edge.ToEntityID
				if visited[childID] {
					continue
				}
				visited[childID] = true

				child, err := r.Entities.GetByID(ctx, orgID, childID)
				if err != nil {
					return err
				}
				childNode := &models.RollupNode{
					EntityID:   child.ID,
					EntityName: child.Name,
					EntityCode: child.Code,
					Depth:      currentNode.Depth + 1,
				}
				currentNode.Children = append(currentNode.Children, childNode)
				nodes[childID] = childNode
				queue = append(queue, childID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}
