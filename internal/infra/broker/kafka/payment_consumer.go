package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"homeease/internal/app/commands"
	handlerspayment "homeease/internal/app/handlers/payment"
)

// Deduper filters already-processed events, typically the inbox store.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// paymentEvent is the shape the payment collaborator publishes. Either a bare
// status document or a CloudEvents envelope holding one in "data" is accepted.
type paymentEvent struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`

	BookingID     string    `json:"booking_id"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	PaidAt        time.Time `json:"paid_at"`
}

// PaymentStatusHandler applies payment status messages to bookings through
// the command bus.
type PaymentStatusHandler struct {
	Bus    commands.Bus
	Dedup  Deduper
	Logger *slog.Logger
}

func (h *PaymentStatusHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt paymentEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("payment message dropped", "error", err, "topic", msg.Topic, "offset", msg.Offset)
		}
		return nil
	}
	if len(evt.Data) > 0 {
		inner := evt
		if err := json.Unmarshal(evt.Data, &inner); err == nil {
			inner.ID = evt.ID
			evt = inner
		}
	}
	if evt.BookingID == "" {
		if h.Logger != nil {
			h.Logger.Warn("payment message missing booking id", "topic", msg.Topic, "offset", msg.Offset)
		}
		return nil
	}
	if h.Dedup != nil && evt.ID != "" {
		seen, err := h.Dedup.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}

	_, err := h.Bus.Dispatch(ctx, handlerspayment.RecordPaymentCommand{
		BookingID:     evt.BookingID,
		Status:        evt.Status,
		TransactionID: evt.TransactionID,
		PaidAt:        evt.PaidAt,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("payment status rejected", "booking_id", evt.BookingID, "error", err)
		}
		return err
	}
	return nil
}

var _ MessageHandler = (*PaymentStatusHandler)(nil)
