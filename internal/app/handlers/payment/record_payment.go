// Package payment applies payment status reports from the external payment
// collaborator to bookings.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"homeease/internal/app/commands"
	"homeease/internal/app/outbox"
	"homeease/internal/app/uow"
	domainbooking "homeease/internal/domain/booking"
	"homeease/internal/domain/shared/fault"
)

const recordPaymentKey = "payment.record"

type RecordPaymentCommand struct {
	BookingID     string
	Status        string
	TransactionID string
	PaidAt        time.Time
}

func (c RecordPaymentCommand) Key() string { return recordPaymentKey }

type RecordPaymentResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type RecordPaymentHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *RecordPaymentHandler) Handle(ctx context.Context, cmd RecordPaymentCommand) (*RecordPaymentResult, error) {
	bookingID := strings.TrimSpace(cmd.BookingID)
	if bookingID == "" {
		return nil, fault.New(fault.KindValidationFailed, "booking id is required")
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(bookingID))
	if err != nil {
		if errors.Is(err, domainbooking.ErrNotFound) {
			return nil, fault.Wrap(fault.KindNotFound, "booking not found", err)
		}
		return nil, err
	}

	status := domainbooking.PaymentStatus(strings.ToLower(strings.TrimSpace(cmd.Status)))
	now := h.now()
	if err := b.RecordPayment(status, cmd.TransactionID, cmd.PaidAt, now); err != nil {
		return nil, fault.Wrap(fault.KindValidationFailed, "payment status rejected", err)
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("payment recorded",
			"booking_id", b.ID,
			"payment_status", b.Payment.Status,
			"transaction_id", b.Payment.TransactionID,
		)
	}
	return &RecordPaymentResult{BookingID: string(b.ID), Status: string(b.Payment.Status)}, nil
}

func (h *RecordPaymentHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *RecordPaymentHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[RecordPaymentCommand, *RecordPaymentResult] = (*RecordPaymentHandler)(nil)
