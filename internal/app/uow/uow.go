package uow

import (
	"context"

	domainbooking "homeease/internal/domain/booking"
	domaincatalog "homeease/internal/domain/catalog"
	domainprovider "homeease/internal/domain/provider"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Bookings() domainbooking.Repository
	Providers() domainprovider.Repository
	Catalog() domaincatalog.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
