package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"homeease/internal/app/commands"
	"homeease/internal/app/dto"
	"homeease/internal/app/middleware"
	"homeease/internal/app/outbox"
	"homeease/internal/app/uow"
	domainbooking "homeease/internal/domain/booking"
	domaincatalog "homeease/internal/domain/catalog"
	"homeease/internal/domain/pricing"
	"homeease/internal/domain/promo"
	"homeease/internal/domain/shared/fault"
)

const createBookingKey = "booking.create"

type LineItemInput struct {
	ServiceID string
	Quantity  int
}

type CreateBookingCommand struct {
	CommandID     string
	CustomerID    string
	LineItems     []LineItemInput
	Date          time.Time
	Slot          string
	CustomerName  string
	Phone         string
	Email         string
	AddressLine1  string
	AddressLine2  string
	City          string
	State         string
	Pincode       string
	PromoCode     string
	PaymentMethod string

	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &CreateBookingResult{} }

type CreateBookingResult struct {
	Booking dto.Booking `json:"booking"`
}

type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Promos     promo.Table
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	if len(cmd.LineItems) == 0 {
		return nil, fault.New(fault.KindInvalidBookingRequest, "at least one service is required")
	}

	// Resolve every requested service against the catalog, snapshotting the
	// unit price and owning provider into the line items.
	lines := make([]domainbooking.LineItem, 0, len(cmd.LineItems))
	priced := make([]pricing.LineInput, 0, len(cmd.LineItems))
	for _, item := range cmd.LineItems {
		serviceID := strings.TrimSpace(item.ServiceID)
		if serviceID == "" {
			return nil, fault.New(fault.KindInvalidBookingRequest, "service id is required on every line")
		}
		service, err := unit.Catalog().ByID(ctx, domaincatalog.ServiceID(serviceID))
		if err != nil {
			return nil, fault.Wrap(fault.KindInvalidBookingRequest, fmt.Sprintf("service %s unavailable", serviceID), err)
		}
		if !service.Active {
			return nil, fault.Wrap(fault.KindInvalidBookingRequest, fmt.Sprintf("service %s unavailable", serviceID), domaincatalog.ErrInactive)
		}
		lines = append(lines, domainbooking.LineItem{
			ServiceID:  service.ID,
			Name:       service.Name,
			ProviderID: service.ProviderID,
			Quantity:   item.Quantity,
			UnitPrice:  service.UnitPrice,
		})
		priced = append(priced, pricing.LineInput{UnitPrice: service.UnitPrice, Quantity: item.Quantity})
	}

	quote, applied, err := pricing.Compute(priced, h.promos(), cmd.PromoCode)
	if err != nil {
		return nil, classify(err)
	}

	now := h.now()
	bookingID := strings.TrimSpace(cmd.CommandID)
	if bookingID == "" {
		bookingID = h.newID()
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(bookingID),
		CustomerID: cmd.CustomerID,
		LineItems:  lines,
		Scheduling: domainbooking.Scheduling{Date: cmd.Date, Slot: cmd.Slot},
		CustomerInfo: domainbooking.CustomerInfo{
			Name:  cmd.CustomerName,
			Phone: cmd.Phone,
			Email: cmd.Email,
		},
		Address: domainbooking.Address{
			Line1:   cmd.AddressLine1,
			Line2:   cmd.AddressLine2,
			City:    cmd.City,
			State:   cmd.State,
			Pincode: cmd.Pincode,
		},
		Pricing:       quote,
		PromoApplied:  applied,
		PaymentMethod: domainbooking.PaymentMethod(strings.ToLower(strings.TrimSpace(cmd.PaymentMethod))),
		CreatedAt:     now,
	})
	if err != nil {
		return nil, classify(err)
	}

	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Logger != nil {
		h.Logger.Info("booking created",
			"booking_id", b.ID,
			"customer_id", b.CustomerID,
			"provider_id", b.ProviderID,
			"total", b.Pricing.Total.Amount,
			"promo", cmd.PromoCode,
		)
	}

	return &CreateBookingResult{Booking: dto.MapBooking(b)}, nil
}

func (h *CreateBookingHandler) promos() promo.Table {
	if h.Promos != nil {
		return h.Promos
	}
	return promo.Default()
}

func (h *CreateBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *CreateBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *CreateBookingHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateBookingCommand)(nil)
