package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/apperrors"
	"github.com/heraerp/hera-engine/pkg/models"
	"github.com/heraerp/hera-engine/pkg/repositories"
)

// OrganizationInput is the write payload for creating an organization.
type OrganizationInput struct {
	Name string `json:"organization_name"`
	Code string `json:"organization_code"`
	Type string `json:"organization_type,omitempty"`
}

// OrganizationService manages tenant organizations, the hard isolation
// boundary every other row hangs off.
type OrganizationService interface {
	Create(ctx context.Context, input OrganizationInput) (*models.Organization, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetByCode(ctx context.Context, code string) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
}

type organizationService struct {
	repos  repositories.Repos
	logger *zap.Logger
}

// NewOrganizationService creates an OrganizationService.
func NewOrganizationService(repos repositories.Repos, logger *zap.Logger) OrganizationService {
	return &organizationService{repos: repos, logger: logger}
}

func (s *organizationService) Create(ctx context.Context, input OrganizationInput) (*models.Organization, error) {
	if input.Name == "" {
		return nil, apperrors.NewValidation("organization_name", "must not be empty")
	}
	if input.Code == "" {
		return nil, apperrors.NewValidation("organization_code", "must not be empty")
	}

	org := &models.Organization{
		Name:   input.Name,
		Code:   input.Code,
		Type:   input.Type,
		Status: models.OrgStatusActive,
	}
	if err := s.repos.Organizations.Create(ctx, org); err != nil {
		return nil, err
	}

	s.logger.Info("organization created",
		zap.String("organization_id", org.ID.String()),
		zap.String("organization_code", org.Code))
	return org, nil
}

func (s *organizationService) Get(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return s.repos.Organizations.GetByID(ctx, id)
}

func (s *organizationService) GetByCode(ctx context.Context, code string) (*models.Organization, error) {
	return s.repos.Organizations.GetByCode(ctx, code)
}

func (s *organizationService) List(ctx context.Context) ([]*models.Organization, error) {
	return s.repos.Organizations.List(ctx)
}
