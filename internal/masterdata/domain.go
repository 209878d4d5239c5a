package masterdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookexpress/cotizador/internal/shared"
)

// ListFilters represents list filters shared by master data listings.
type ListFilters struct {
	Search          string
	IncludeInactive bool
	Page            shared.PageRequest
}

// Institution is a school that receives quotations.
type Institution struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Level     string    `json:"level"`
	District  string    `json:"district"`
	Contact   string    `json:"contact"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// AdvisorStatus marks whether an advisor can take new quotations.
type AdvisorStatus string

const (
	AdvisorActive   AdvisorStatus = "ACTIVE"
	AdvisorInactive AdvisorStatus = "INACTIVE"
)

// Advisor is the sales representative who prepares quotations.
type Advisor struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone"`
	Status    AdvisorStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// CreateInstitutionRequest is the payload for registering a school.
type CreateInstitutionRequest struct {
	Code     string `json:"code" validate:"max=32"`
	Name     string `json:"name" validate:"required,max=200"`
	Level    string `json:"level" validate:"max=64"`
	District string `json:"district" validate:"max=120"`
	Contact  string `json:"contact" validate:"max=200"`
	Phone    string `json:"phone" validate:"max=32"`
}

// CreateAdvisorRequest is the payload for registering an advisor.
type CreateAdvisorRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"max=32"`
}

// Repository defines persistence for master data.
type Repository interface {
	ListInstitutions(ctx context.Context, filters ListFilters) ([]Institution, int, error)
	GetInstitution(ctx context.Context, id int64) (Institution, error)
	CreateInstitution(ctx context.Context, inst Institution) (Institution, error)
	ListAdvisors(ctx context.Context, filters ListFilters) ([]Advisor, int, error)
	GetAdvisor(ctx context.Context, id int64) (Advisor, error)
	CreateAdvisor(ctx context.Context, advisor Advisor) (Advisor, error)
}

// Service exposes master data operations.
type Service interface {
	ListInstitutions(ctx context.Context, filters ListFilters) ([]Institution, int, error)
	GetInstitution(ctx context.Context, id int64) (Institution, error)
	CreateInstitution(ctx context.Context, req CreateInstitutionRequest) (Institution, error)
	ListAdvisors(ctx context.Context, filters ListFilters) ([]Advisor, int, error)
	GetAdvisor(ctx context.Context, id int64) (Advisor, error)
	CreateAdvisor(ctx context.Context, req CreateAdvisorRequest) (Advisor, error)
}

var (
	// ErrInstitutionNotFound indicates a missing institution.
	ErrInstitutionNotFound = fmt.Errorf("masterdata: institution %w", shared.ErrNotFound)
	// ErrAdvisorNotFound indicates a missing advisor.
	ErrAdvisorNotFound = fmt.Errorf("masterdata: advisor %w", shared.ErrNotFound)
	// ErrAdvisorInactive indicates an advisor that cannot take new quotations.
	ErrAdvisorInactive = errors.New("masterdata: advisor is inactive")
)
