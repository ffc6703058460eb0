package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"homeease/internal/app/commands"
	"homeease/internal/app/dto"
	"homeease/internal/app/outbox"
	"homeease/internal/app/uow"
	domainbooking "homeease/internal/domain/booking"
	"homeease/internal/domain/shared/fault"
)

const rateBookingKey = "booking.rate"

type RateBookingCommand struct {
	BookingID string
	Stars     int
	Comment   string
	Actor     domainbooking.Actor
}

func (c RateBookingCommand) Key() string { return rateBookingKey }

type RateBookingResult struct {
	Booking dto.Booking `json:"booking"`
}

type RateBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *RateBookingHandler) Handle(ctx context.Context, cmd RateBookingCommand) (*RateBookingResult, error) {
	bookingID := strings.TrimSpace(cmd.BookingID)
	if bookingID == "" {
		return nil, fault.New(fault.KindValidationFailed, "booking id is required")
	}
	if cmd.Stars < 1 || cmd.Stars > 5 {
		return nil, fault.Wrap(fault.KindValidationFailed, "rating must be between 1 and 5", domainbooking.ErrInvalidStars)
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(bookingID))
	if err != nil {
		return nil, classify(err)
	}
	if !cmd.Actor.IsAdmin() && cmd.Actor.ID != b.CustomerID {
		return nil, fault.Wrap(fault.KindUnauthorized, "only the booking customer may rate", domainbooking.ErrActorNotAllowed)
	}

	// The conditional write wins or loses atomically, so two concurrent
	// rating attempts cannot both stick.
	now := h.now()
	rated, err := unit.Bookings().SetRating(ctx, b.ID, domainbooking.Rating{
		Stars:   cmd.Stars,
		Comment: strings.TrimSpace(cmd.Comment),
		RatedAt: now,
	})
	if err != nil {
		return nil, classify(err)
	}

	rated.Record(domainbooking.Rated{BookingID: rated.ID, Stars: cmd.Stars, At: now})
	pending := rated.PendingEvents()
	rated.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("booking rated", "booking_id", rated.ID, "stars", cmd.Stars)
	}

	return &RateBookingResult{Booking: dto.MapBooking(rated)}, nil
}

func (h *RateBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *RateBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[RateBookingCommand, *RateBookingResult] = (*RateBookingHandler)(nil)
