package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"homeease/internal/app/commands"
	"homeease/internal/app/dto"
	"homeease/internal/app/ledger"
	"homeease/internal/app/outbox"
	"homeease/internal/app/uow"
	domainbooking "homeease/internal/domain/booking"
	"homeease/internal/domain/shared/fault"
)

const setBookingStatusKey = "booking.set_status"

type SetBookingStatusCommand struct {
	BookingID string
	Target    string
	Reason    string
	Actor     domainbooking.Actor
}

func (c SetBookingStatusCommand) Key() string { return setBookingStatusKey }

type SetBookingStatusResult struct {
	Booking dto.Booking `json:"booking"`
}

type SetBookingStatusHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *SetBookingStatusHandler) Handle(ctx context.Context, cmd SetBookingStatusCommand) (*SetBookingStatusResult, error) {
	bookingID := strings.TrimSpace(cmd.BookingID)
	if bookingID == "" {
		return nil, fault.New(fault.KindValidationFailed, "booking id is required")
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	target, err := domainbooking.ParseStatus(cmd.Target)
	if err != nil {
		return nil, classify(err)
	}

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(bookingID))
	if err != nil {
		return nil, classify(err)
	}

	now := h.now()
	if err := b.SetStatus(target, cmd.Actor, cmd.Reason, now); err != nil {
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

	// Completion feeds the provider ledger. The completion flip is committed
	// even when the recompute fails; the fault names the provider so an
	// operator re-runs only the recompute.
	if target == domainbooking.StatusCompleted {
		if err := ledger.Recompute(ctx, unit, b.ProviderID, now); err != nil {
			return nil, fault.Wrap(fault.KindStorageFault,
				fmt.Sprintf("booking %s is completed; ledger recompute for provider %s failed and must be re-run", b.ID, b.ProviderID),
				&ledger.RecomputeError{ProviderID: b.ProviderID, BookingID: string(b.ID), Err: err})
		}
	}

	if h.Logger != nil {
		h.Logger.Info("booking status changed",
			"booking_id", b.ID,
			"status", b.Status,
			"actor", cmd.Actor.ID,
		)
	}

	return &SetBookingStatusResult{Booking: dto.MapBooking(b)}, nil
}

func (h *SetBookingStatusHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *SetBookingStatusHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[SetBookingStatusCommand, *SetBookingStatusResult] = (*SetBookingStatusHandler)(nil)
