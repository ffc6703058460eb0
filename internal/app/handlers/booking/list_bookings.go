package booking

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"homeease/internal/app/dto"
	handlersupport "homeease/internal/app/handlers/support"
	"homeease/internal/app/queries"
	"homeease/internal/app/uow"
	domainbooking "homeease/internal/domain/booking"
	"homeease/internal/domain/shared/fault"
)

const (
	getBookingKey           = "booking.get"
	listCustomerBookingsKey = "customer.bookings.list"
	listProviderBookingsKey = "provider.bookings.list"
	allStatusesFilterValue  = "all"
)

type GetBookingQuery struct {
	BookingID string
	Actor     domainbooking.Actor
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	bookingID := strings.TrimSpace(q.BookingID)
	if bookingID == "" {
		return dto.Booking{}, fault.New(fault.KindValidationFailed, "booking id is required")
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(bookingID))
	if err != nil {
		return dto.Booking{}, classify(err)
	}
	if !q.Actor.IsAdmin() && q.Actor.ID != b.CustomerID && !b.OwnsLineItem(q.Actor.ID) {
		return dto.Booking{}, fault.Wrap(fault.KindUnauthorized, "booking belongs to another customer", domainbooking.ErrActorNotAllowed)
	}
	return dto.MapBooking(b), nil
}

type ListCustomerBookingsQuery struct {
	CustomerID string
	Status     string
}

func (q ListCustomerBookingsQuery) Key() string { return listCustomerBookingsKey }

type ListCustomerBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListCustomerBookingsHandler) Handle(ctx context.Context, q ListCustomerBookingsQuery) (dto.BookingCollection, error) {
	customerID := strings.TrimSpace(q.CustomerID)
	if customerID == "" {
		return dto.BookingCollection{}, fault.New(fault.KindValidationFailed, "customer id is required")
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	items, err := unit.Bookings().ListByCustomer(execCtx, customerID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	items = filterByStatus(items, q.Status)
	sortNewestFirst(items)

	if h.Logger != nil {
		h.Logger.Debug("customer bookings listed", "customer_id", customerID, "count", len(items))
	}
	return dto.MapBookings(items), nil
}

type ListProviderBookingsQuery struct {
	ProviderID string
	Status     string
}

func (q ListProviderBookingsQuery) Key() string { return listProviderBookingsKey }

type ListProviderBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListProviderBookingsHandler) Handle(ctx context.Context, q ListProviderBookingsQuery) (dto.BookingCollection, error) {
	providerID := strings.TrimSpace(q.ProviderID)
	if providerID == "" {
		return dto.BookingCollection{}, fault.New(fault.KindValidationFailed, "provider id is required")
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	items, err := unit.Bookings().ListByProvider(execCtx, providerID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	items = filterByStatus(items, q.Status)
	sortNewestFirst(items)

	if h.Logger != nil {
		h.Logger.Debug("provider bookings listed", "provider_id", providerID, "count", len(items))
	}
	return dto.MapBookings(items), nil
}

func filterByStatus(items []*domainbooking.Booking, status string) []*domainbooking.Booking {
	filter := strings.ToLower(strings.TrimSpace(status))
	if filter == "" || filter == allStatusesFilterValue {
		return items
	}
	out := items[:0]
	for _, b := range items {
		if string(b.Status) == filter {
			out = append(out, b)
		}
	}
	return out
}

func sortNewestFirst(items []*domainbooking.Booking) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

var _ queries.Handler[GetBookingQuery, dto.Booking] = (*GetBookingHandler)(nil)
var _ queries.Handler[ListCustomerBookingsQuery, dto.BookingCollection] = (*ListCustomerBookingsHandler)(nil)
var _ queries.Handler[ListProviderBookingsQuery, dto.BookingCollection] = (*ListProviderBookingsHandler)(nil)
