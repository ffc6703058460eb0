package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	domainbooking "homeease/internal/domain/booking"
	domaincatalog "homeease/internal/domain/catalog"
	domainprovider "homeease/internal/domain/provider"
)

// BookingRepository stores bookings in memory.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

// NewBookingRepository builds an empty booking repo.
func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

// ByID fetches a booking.
func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("memory: %w", domainbooking.ErrNotFound)
	}
	return b, nil
}

// Save stores the current booking state.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Version++
	r.items[b.ID] = b
	return nil
}

func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domainbooking.Booking, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, fmt.Errorf("memory: customer id required")
	}
	return r.list(func(b *domainbooking.Booking) bool {
		return b.CustomerID == id
	}), nil
}

func (r *BookingRepository) ListByProvider(ctx context.Context, providerID string) ([]*domainbooking.Booking, error) {
	id := strings.TrimSpace(providerID)
	if id == "" {
		return nil, fmt.Errorf("memory: provider id required")
	}
	return r.list(func(b *domainbooking.Booking) bool {
		return b.OwnsLineItem(id)
	}), nil
}

func (r *BookingRepository) ListCompletedByProvider(ctx context.Context, providerID string) ([]*domainbooking.Booking, error) {
	id := strings.TrimSpace(providerID)
	if id == "" {
		return nil, fmt.Errorf("memory: provider id required")
	}
	return r.list(func(b *domainbooking.Booking) bool {
		return b.ProviderID == id && b.Status == domainbooking.StatusCompleted
	}), nil
}

// SetRating applies the rating only when the booking is completed and has no
// rating yet; the check and the write happen under one lock so concurrent
// callers cannot both succeed.
func (r *BookingRepository) SetRating(ctx context.Context, id domainbooking.BookingID, rating domainbooking.Rating) (*domainbooking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("memory: %w", domainbooking.ErrNotFound)
	}
	if b.Status != domainbooking.StatusCompleted {
		return nil, fmt.Errorf("memory: %w", domainbooking.ErrNotCompleted)
	}
	if b.Rating != nil {
		return nil, fmt.Errorf("memory: %w", domainbooking.ErrAlreadyRated)
	}
	stored := rating
	b.Rating = &stored
	b.UpdatedAt = rating.RatedAt
	b.Version++
	return b, nil
}

func (r *BookingRepository) list(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if match(b) {
			matches = append(matches, b)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches
}

// ProviderRepository keeps provider profiles in memory.
type ProviderRepository struct {
	mu    sync.RWMutex
	items map[string]*domainprovider.Provider
}

// NewProviderRepository builds an empty provider repo.
func NewProviderRepository() *ProviderRepository {
	return &ProviderRepository{items: make(map[string]*domainprovider.Provider)}
}

func (r *ProviderRepository) ByID(ctx context.Context, id string) (*domainprovider.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("memory: %w", domainprovider.ErrNotFound)
	}
	return p, nil
}

func (r *ProviderRepository) Save(ctx context.Context, p *domainprovider.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Version++
	r.items[p.ID] = p
	return nil
}

func (r *ProviderRepository) UpdateLedger(ctx context.Context, id string, ledger domainprovider.Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return fmt.Errorf("memory: %w", domainprovider.ErrNotFound)
	}
	p.Ledger = ledger
	p.Version++
	return nil
}

// CatalogRepository is an in-memory service catalog.
type CatalogRepository struct {
	mu    sync.RWMutex
	items map[domaincatalog.ServiceID]*domaincatalog.Service
}

// NewCatalogRepository builds an empty catalog.
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{items: make(map[domaincatalog.ServiceID]*domaincatalog.Service)}
}

func (r *CatalogRepository) ByID(ctx context.Context, id domaincatalog.ServiceID) (*domaincatalog.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("memory: %w", domaincatalog.ErrNotFound)
	}
	return s, nil
}

func (r *CatalogRepository) ListByProvider(ctx context.Context, providerID string) ([]*domaincatalog.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domaincatalog.Service, 0)
	for _, s := range r.items {
		if s.ProviderID == providerID {
			matches = append(matches, s)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Name < matches[j].Name
	})
	return matches, nil
}

func (r *CatalogRepository) Save(ctx context.Context, s *domaincatalog.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = s
	return nil
}
