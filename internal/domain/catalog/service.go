package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"homeease/internal/domain/shared/money"
)

var (
	ErrIDRequired       = errors.New("catalog: service id is required")
	ErrNameRequired     = errors.New("catalog: service name is required")
	ErrProviderRequired = errors.New("catalog: owning provider is required")
	ErrPriceInvalid     = errors.New("catalog: unit price must be positive")
	ErrNotFound         = errors.New("catalog: service not found")
	ErrInactive         = errors.New("catalog: service is inactive")
)

type ServiceID string

// Service is a catalog entry a customer can order. The catalog is owned by
// the profile/CRUD layer; the booking core only reads it to snapshot prices
// and to resolve the owning provider of each line item.
type Service struct {
	ID          ServiceID
	Name        string
	Description string
	Category    string
	ProviderID  string
	UnitPrice   money.Money
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ServiceID) (*Service, error)
	ListByProvider(ctx context.Context, providerID string) ([]*Service, error)
	Save(ctx context.Context, service *Service) error
}

type CreateParams struct {
	ID          ServiceID
	Name        string
	Description string
	Category    string
	ProviderID  string
	UnitPrice   money.Money
	Active      bool
	CreatedAt   time.Time
}

func NewService(params CreateParams) (*Service, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	providerID := strings.TrimSpace(params.ProviderID)
	if providerID == "" {
		return nil, ErrProviderRequired
	}
	if params.UnitPrice.Amount <= 0 || params.UnitPrice.Currency == "" {
		return nil, ErrPriceInvalid
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Service{
		ID:          ServiceID(id),
		Name:        name,
		Description: strings.TrimSpace(params.Description),
		Category:    strings.TrimSpace(params.Category),
		ProviderID:  providerID,
		UnitPrice:   params.UnitPrice,
		Active:      params.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Service) Deactivate(now time.Time) {
	s.Active = false
	s.touch(now)
}

func (s *Service) Activate(now time.Time) {
	s.Active = true
	s.touch(now)
}

func (s *Service) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	s.UpdatedAt = now.UTC()
}
