package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"homeease/internal/domain/catalog"
	"homeease/internal/domain/pricing"
	"homeease/internal/domain/shared/events"
	"homeease/internal/domain/shared/money"
	"homeease/internal/domain/user"
)

var (
	ErrIDRequired       = errors.New("booking: id is required")
	ErrCustomerRequired = errors.New("booking: customer id is required")
	ErrNoLineItems      = errors.New("booking: at least one line item is required")
	ErrInvalidQuantity  = errors.New("booking: line item quantity must be positive")
	ErrInvalidPhone     = errors.New("booking: phone must be 10 digits")
	ErrInvalidPincode   = errors.New("booking: pincode must be 6 digits")
	ErrInvalidEmail     = errors.New("booking: email is malformed")
	ErrNameMissing      = errors.New("booking: customer name is required")
	ErrAddressMissing   = errors.New("booking: address line and city are required")
	ErrScheduleMissing  = errors.New("booking: requested date and slot are required")
	ErrNotFound         = errors.New("booking: not found")
)

type BookingID string

// LineItem is one ordered service with its unit price snapshotted at booking
// time, so later catalog price changes never touch historical bookings.
type LineItem struct {
	ServiceID  catalog.ServiceID
	Name       string
	ProviderID string
	Quantity   int
	UnitPrice  money.Money
}

// Total is the line contribution to the subtotal and to provider earnings.
func (l LineItem) Total() money.Money {
	return l.UnitPrice.Multiply(int64(l.Quantity))
}

// Scheduling carries the requested date and a free-text slot token; slots are
// not validated against provider availability.
type Scheduling struct {
	Date time.Time
	Slot string
}

// CustomerInfo is a denormalized copy of the customer profile taken at
// creation; it is never re-synced.
type CustomerInfo struct {
	Name  string
	Phone string
	Email string
}

type Address struct {
	Line1   string
	Line2   string
	City    string
	State   string
	Pincode string
}

// Rating is set at most once, only after the booking completes.
type Rating struct {
	Stars   int
	Comment string
	RatedAt time.Time
}

type Booking struct {
	ID         BookingID
	CustomerID string
	// ProviderID is the declared owner of the first line item's service; a
	// booking can span services from several providers but records only one
	// as primary.
	ProviderID           string
	LineItems            []LineItem
	Scheduling           Scheduling
	CustomerInfo         CustomerInfo
	Address              Address
	Pricing              pricing.Quote
	PromoApplied         *pricing.PromoApplied
	Payment              Payment
	Status               Status
	ServiceStatus        ServiceStatus
	ServiceStatusHistory []HistoryEntry
	Rating               *Rating
	CompletedAt          time.Time
	CancelledAt          time.Time
	CancellationReason   string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByCustomer(ctx context.Context, customerID string) ([]*Booking, error)
	ListByProvider(ctx context.Context, providerID string) ([]*Booking, error)
	ListCompletedByProvider(ctx context.Context, providerID string) ([]*Booking, error)
	// SetRating performs an atomic conditional write: it succeeds only when
	// the booking is completed and carries no rating yet, so concurrent
	// rating attempts cannot both win.
	SetRating(ctx context.Context, id BookingID, rating Rating) (*Booking, error)
}

type CreateParams struct {
	ID            BookingID
	CustomerID    string
	LineItems     []LineItem
	Scheduling    Scheduling
	CustomerInfo  CustomerInfo
	Address       Address
	Pricing       pricing.Quote
	PromoApplied  *pricing.PromoApplied
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(params.CustomerID) == "" {
		return nil, ErrCustomerRequired
	}
	if len(params.LineItems) == 0 {
		return nil, ErrNoLineItems
	}
	for _, line := range params.LineItems {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}
	if err := validateCustomerInfo(params.CustomerInfo); err != nil {
		return nil, err
	}
	if err := validateAddress(params.Address); err != nil {
		return nil, err
	}
	if err := validateScheduling(params.Scheduling); err != nil {
		return nil, err
	}
	if !params.PaymentMethod.Known() {
		return nil, ErrInvalidPaymentMethod
	}
	if err := params.Pricing.Validate(); err != nil {
		return nil, err
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	b := &Booking{
		ID:           params.ID,
		CustomerID:   params.CustomerID,
		ProviderID:   params.LineItems[0].ProviderID,
		LineItems:    append([]LineItem(nil), params.LineItems...),
		Scheduling:   params.Scheduling,
		CustomerInfo: params.CustomerInfo,
		Address:      params.Address,
		Pricing:      params.Pricing,
		PromoApplied: params.PromoApplied,
		Payment: Payment{
			Method: params.PaymentMethod,
			Status: PaymentPending,
		},
		Status:        StatusPending,
		ServiceStatus: ServiceNotStarted,
		ServiceStatusHistory: []HistoryEntry{{
			Status: ServiceNotStarted,
			At:     now,
			Actor:  params.CustomerID,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Record(Created{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		ProviderID: b.ProviderID,
		Total:      b.Pricing.Total,
		At:         now,
	})
	return b, nil
}

// Actor identifies the authenticated caller for transition authority checks.
type Actor struct {
	ID   string
	Role user.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == user.RoleAdmin
}

// OwnsLineItem reports whether the actor is the declared owner of at least
// one line item; ownership is checked per line, not against the primary
// provider field.
func (b *Booking) OwnsLineItem(providerID string) bool {
	for _, line := range b.LineItems {
		if line.ProviderID == providerID {
			return true
		}
	}
	return false
}

func validateCustomerInfo(info CustomerInfo) error {
	if strings.TrimSpace(info.Name) == "" {
		return ErrNameMissing
	}
	if !digitsOnly(info.Phone, 10) {
		return ErrInvalidPhone
	}
	email := strings.TrimSpace(info.Email)
	at := strings.Index(email, "@")
	if at < 1 || !strings.Contains(email[at:], ".") {
		return ErrInvalidEmail
	}
	return nil
}

func validateAddress(addr Address) error {
	if strings.TrimSpace(addr.Line1) == "" || strings.TrimSpace(addr.City) == "" {
		return ErrAddressMissing
	}
	if !digitsOnly(addr.Pincode, 6) {
		return ErrInvalidPincode
	}
	return nil
}

func validateScheduling(s Scheduling) error {
	if s.Date.IsZero() || strings.TrimSpace(s.Slot) == "" {
		return ErrScheduleMissing
	}
	return nil
}

func digitsOnly(value string, length int) bool {
	value = strings.TrimSpace(value)
	if len(value) != length {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
