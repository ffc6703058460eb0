package memory

import (
	"context"
	"errors"

	"homeease/internal/app/uow"
	domainbooking "homeease/internal/domain/booking"
	domaincatalog "homeease/internal/domain/catalog"
	domainprovider "homeease/internal/domain/provider"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	BookingRepo  domainbooking.Repository
	ProviderRepo domainprovider.Repository
	CatalogRepo  domaincatalog.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided but
// the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.BookingRepo == nil || f.ProviderRepo == nil || f.CatalogRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		bookings:  f.BookingRepo,
		providers: f.ProviderRepo,
		catalog:   f.CatalogRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	bookings  domainbooking.Repository
	providers domainprovider.Repository
	catalog   domaincatalog.Repository
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) Providers() domainprovider.Repository {
	return u.providers
}

func (u *Unit) Catalog() domaincatalog.Repository {
	return u.catalog
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
