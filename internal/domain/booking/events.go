package booking

import (
	"time"

	"homeease/internal/domain/shared/money"
)

type Created struct {
	BookingID  BookingID
	CustomerID string
	ProviderID string
	Total      money.Money
	At         time.Time
}

func (e Created) EventName() string     { return "booking.created" }
func (e Created) AggregateID() string   { return string(e.BookingID) }
func (e Created) OccurredAt() time.Time { return e.At }

type StatusChanged struct {
	BookingID BookingID
	From      Status
	To        Status
	Actor     string
	Reason    string
	At        time.Time
}

func (e StatusChanged) EventName() string     { return "booking.status_changed" }
func (e StatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }

type ServiceStatusChanged struct {
	BookingID BookingID
	From      ServiceStatus
	To        ServiceStatus
	Actor     string
	At        time.Time
}

func (e ServiceStatusChanged) EventName() string     { return "booking.service_status_changed" }
func (e ServiceStatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e ServiceStatusChanged) OccurredAt() time.Time { return e.At }

type Completed struct {
	BookingID  BookingID
	ProviderID string
	Total      money.Money
	At         time.Time
}

func (e Completed) EventName() string     { return "booking.completed" }
func (e Completed) AggregateID() string   { return string(e.BookingID) }
func (e Completed) OccurredAt() time.Time { return e.At }

type Rated struct {
	BookingID BookingID
	Stars     int
	At        time.Time
}

func (e Rated) EventName() string     { return "booking.rated" }
func (e Rated) AggregateID() string   { return string(e.BookingID) }
func (e Rated) OccurredAt() time.Time { return e.At }

type PaymentRecorded struct {
	BookingID BookingID
	Status    PaymentStatus
	At        time.Time
}

func (e PaymentRecorded) EventName() string     { return "booking.payment_recorded" }
func (e PaymentRecorded) AggregateID() string   { return string(e.BookingID) }
func (e PaymentRecorded) OccurredAt() time.Time { return e.At }
