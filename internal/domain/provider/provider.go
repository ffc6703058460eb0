package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"homeease/internal/domain/shared/money"
)

var (
	ErrIDRequired   = errors.New("provider: id is required")
	ErrNameRequired = errors.New("provider: name is required")
	ErrNotFound     = errors.New("provider: not found")
)

// Ledger is the derived performance view of a provider. It is recomputed
// wholesale from the set of that provider's completed bookings; the bookings
// remain the source of truth.
type Ledger struct {
	CompletedServiceCount int
	LifetimeEarnings      money.Money
	LastServiceDate       time.Time
}

type Provider struct {
	ID        string
	Name      string
	Phone     string
	Skills    []string
	Ledger    Ledger
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

type Repository interface {
	ByID(ctx context.Context, id string) (*Provider, error)
	Save(ctx context.Context, p *Provider) error
	// UpdateLedger writes only the ledger snapshot of the provider profile.
	UpdateLedger(ctx context.Context, id string, ledger Ledger) error
}

type CreateParams struct {
	ID        string
	Name      string
	Phone     string
	Skills    []string
	CreatedAt time.Time
}

func NewProvider(params CreateParams) (*Provider, error) {
	id := strings.TrimSpace(params.ID)
	if id == "" {
		return nil, ErrIDRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Provider{
		ID:        id,
		Name:      name,
		Phone:     strings.TrimSpace(params.Phone),
		Skills:    append([]string(nil), params.Skills...),
		Ledger:    Ledger{LifetimeEarnings: money.INR(0)},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
