package booking

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidPaymentMethod = errors.New("booking: unknown payment method")
	ErrInvalidPaymentStatus = errors.New("booking: unknown payment status")
)

// PaymentMethod is how the customer intends to settle; the platform records
// it but performs no capture or settlement.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "wallet"
)

func (m PaymentMethod) Known() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentWallet:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Known() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type Payment struct {
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID string
	PaidAt        time.Time
}

// RecordPayment stores a payment status reported by the payment collaborator.
func (b *Booking) RecordPayment(status PaymentStatus, transactionID string, paidAt, now time.Time) error {
	if !status.Known() {
		return ErrInvalidPaymentStatus
	}
	now = now.UTC()
	b.Payment.Status = status
	if txID := strings.TrimSpace(transactionID); txID != "" {
		b.Payment.TransactionID = txID
	}
	if status == PaymentCompleted {
		if paidAt.IsZero() {
			paidAt = now
		}
		b.Payment.PaidAt = paidAt.UTC()
	}
	b.UpdatedAt = now
	b.Record(PaymentRecorded{BookingID: b.ID, Status: status, At: now})
	return nil
}
