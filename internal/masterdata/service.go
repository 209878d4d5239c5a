package masterdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bookexpress/cotizador/internal/shared"
)

// service implements Service interface
type service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService creates a new master data service
func NewService(repo Repository, validate *validator.Validate) Service {
	if validate == nil {
		validate = validator.New()
	}
	return &service{repo: repo, validate: validate}
}

func (s *service) ListInstitutions(ctx context.Context, filters ListFilters) ([]Institution, int, error) {
	return s.repo.ListInstitutions(ctx, filters)
}

func (s *service) GetInstitution(ctx context.Context, id int64) (Institution, error) {
	if id <= 0 {
		return Institution{}, fmt.Errorf("%w: invalid institution id", shared.ErrInvalidInput)
	}
	return s.repo.GetInstitution(ctx, id)
}

func (s *service) CreateInstitution(ctx context.Context, req CreateInstitutionRequest) (Institution, error) {
	if err := s.validate.Struct(req); err != nil {
		return Institution{}, err
	}
	return s.repo.CreateInstitution(ctx, Institution{
		Code:     strings.TrimSpace(req.Code),
		Name:     strings.TrimSpace(req.Name),
		Level:    strings.ToUpper(strings.TrimSpace(req.Level)),
		District: strings.TrimSpace(req.District),
		Contact:  strings.TrimSpace(req.Contact),
		Phone:    strings.TrimSpace(req.Phone),
	})
}

func (s *service) ListAdvisors(ctx context.Context, filters ListFilters) ([]Advisor, int, error) {
	return s.repo.ListAdvisors(ctx, filters)
}

func (s *service) GetAdvisor(ctx context.Context, id int64) (Advisor, error) {
	if id <= 0 {
		return Advisor{}, fmt.Errorf("%w: invalid advisor id", shared.ErrInvalidInput)
	}
	return s.repo.GetAdvisor(ctx, id)
}

func (s *service) CreateAdvisor(ctx context.Context, req CreateAdvisorRequest) (Advisor, error) {
	if err := s.validate.Struct(req); err != nil {
		return Advisor{}, err
	}
	return s.repo.CreateAdvisor(ctx, Advisor{
		Name:   strings.TrimSpace(req.Name),
		Email:  strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:  strings.TrimSpace(req.Phone),
		Status: AdvisorActive,
	})
}
