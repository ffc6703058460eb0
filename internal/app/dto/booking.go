package dto

import (
	"time"

	domainbooking "homeease/internal/domain/booking"
	"homeease/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func mapMoney(m money.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Amount, Currency: m.Currency}
}

type LineItemDTO struct {
	ServiceID  string   `json:"service_id"`
	Name       string   `json:"name"`
	ProviderID string   `json:"provider_id"`
	Quantity   int      `json:"quantity"`
	UnitPrice  MoneyDTO `json:"unit_price"`
}

type PricingDTO struct {
	Subtotal       MoneyDTO `json:"subtotal"`
	ServiceCharges MoneyDTO `json:"service_charges"`
	Discount       MoneyDTO `json:"discount"`
	Total          MoneyDTO `json:"total"`
}

type PromoAppliedDTO struct {
	Code           string   `json:"code"`
	DiscountAmount MoneyDTO `json:"discount_amount"`
}

type PaymentDTO struct {
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

type HistoryEntryDTO struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Notes  string    `json:"notes,omitempty"`
}

type RatingDTO struct {
	Stars   int       `json:"stars"`
	Comment string    `json:"comment,omitempty"`
	RatedAt time.Time `json:"rated_at"`
}

type Booking struct {
	ID                   string            `json:"id"`
	CustomerID           string            `json:"customer_id"`
	ProviderID           string            `json:"provider_id,omitempty"`
	LineItems            []LineItemDTO     `json:"line_items"`
	Date                 time.Time         `json:"date"`
	Slot                 string            `json:"slot"`
	Pricing              PricingDTO        `json:"pricing"`
	PromoApplied         *PromoAppliedDTO  `json:"promo_applied,omitempty"`
	Payment              PaymentDTO        `json:"payment"`
	Status               string            `json:"status"`
	ServiceStatus        string            `json:"service_status"`
	ServiceStatusHistory []HistoryEntryDTO `json:"service_status_history"`
	Rating               *RatingDTO        `json:"rating,omitempty"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
	CancelledAt          *time.Time        `json:"cancelled_at,omitempty"`
	CancellationReason   string            `json:"cancellation_reason,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	if b == nil {
		return Booking{}
	}
	lines := make([]LineItemDTO, 0, len(b.LineItems))
	for _, line := range b.LineItems {
		lines = append(lines, LineItemDTO{
			ServiceID:  string(line.ServiceID),
			Name:       line.Name,
			ProviderID: line.ProviderID,
			Quantity:   line.Quantity,
			UnitPrice:  mapMoney(line.UnitPrice),
		})
	}
	history := make([]HistoryEntryDTO, 0, len(b.ServiceStatusHistory))
	for _, entry := range b.ServiceStatusHistory {
		history = append(history, HistoryEntryDTO{
			Status: string(entry.Status),
			At:     entry.At,
			Actor:  entry.Actor,
			Notes:  entry.Notes,
		})
	}
	out := Booking{
		ID:                   string(b.ID),
		CustomerID:           b.CustomerID,
		ProviderID:           b.ProviderID,
		LineItems:            lines,
		Date:                 b.Scheduling.Date,
		Slot:                 b.Scheduling.Slot,
		Pricing: PricingDTO{
			Subtotal:       mapMoney(b.Pricing.Subtotal),
			ServiceCharges: mapMoney(b.Pricing.ServiceCharges),
			Discount:       mapMoney(b.Pricing.Discount),
			Total:          mapMoney(b.Pricing.Total),
		},
		Payment: PaymentDTO{
			Method:        string(b.Payment.Method),
			Status:        string(b.Payment.Status),
			TransactionID: b.Payment.TransactionID,
		},
		Status:               string(b.Status),
		ServiceStatus:        string(b.ServiceStatus),
		ServiceStatusHistory: history,
		CancellationReason:   b.CancellationReason,
		CreatedAt:            b.CreatedAt,
	}
	if b.PromoApplied != nil {
		out.PromoApplied = &PromoAppliedDTO{
			Code:           b.PromoApplied.Code,
			DiscountAmount: mapMoney(b.PromoApplied.DiscountAmount),
		}
	}
	if !b.Payment.PaidAt.IsZero() {
		paidAt := b.Payment.PaidAt
		out.Payment.PaidAt = &paidAt
	}
	if b.Rating != nil {
		out.Rating = &RatingDTO{Stars: b.Rating.Stars, Comment: b.Rating.Comment, RatedAt: b.Rating.RatedAt}
	}
	if !b.CompletedAt.IsZero() {
		completedAt := b.CompletedAt
		out.CompletedAt = &completedAt
	}
	if !b.CancelledAt.IsZero() {
		cancelledAt := b.CancelledAt
		out.CancelledAt = &cancelledAt
	}
	return out
}

func MapBookings(items []*domainbooking.Booking) BookingCollection {
	out := BookingCollection{Items: make([]Booking, 0, len(items))}
	for _, b := range items {
		out.Items = append(out.Items, MapBooking(b))
	}
	return out
}
