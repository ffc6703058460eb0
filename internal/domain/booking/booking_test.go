package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeease/internal/domain/pricing"
	"homeease/internal/domain/shared/money"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func validParams() CreateParams {
	return CreateParams{
		ID:         "bk-1",
		CustomerID: "cust-1",
		LineItems: []LineItem{{
			ServiceID:  "svc-plumbing",
			Name:       "Tap repair",
			ProviderID: "prov-1",
			Quantity:   2,
			UnitPrice:  money.INR(100),
		}},
		Scheduling:   Scheduling{Date: fixedNow.AddDate(0, 0, 2), Slot: "morning"},
		CustomerInfo: CustomerInfo{Name: "Asha Rao", Phone: "9876543210", Email: "asha@example.com"},
		Address:      Address{Line1: "14 MG Road", City: "Bengaluru", Pincode: "560001"},
		Pricing: pricing.Quote{
			Subtotal:       money.INR(200),
			ServiceCharges: money.INR(99),
			Discount:       money.INR(0),
			Total:          money.INR(299),
		},
		PaymentMethod: PaymentCash,
		CreatedAt:     fixedNow,
	}
}

func newTestBooking(t *testing.T) *Booking {
	t.Helper()
	b, err := NewBooking(validParams())
	require.NoError(t, err)
	b.ClearEvents()
	return b
}

func TestNewBookingInitialState(t *testing.T) {
	b, err := NewBooking(validParams())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, ServiceNotStarted, b.ServiceStatus)
	assert.Equal(t, "prov-1", b.ProviderID)
	assert.Equal(t, PaymentPending, b.Payment.Status)

	require.Len(t, b.ServiceStatusHistory, 1)
	assert.Equal(t, ServiceNotStarted, b.ServiceStatusHistory[0].Status)
	assert.Equal(t, "cust-1", b.ServiceStatusHistory[0].Actor)

	events := b.PendingEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(Created)
	require.True(t, ok)
	assert.Equal(t, BookingID("bk-1"), created.BookingID)
}

func TestNewBookingPrimaryProviderIsFirstLine(t *testing.T) {
	params := validParams()
	params.LineItems = append(params.LineItems, LineItem{
		ServiceID:  "svc-electric",
		Name:       "Fan install",
		ProviderID: "prov-2",
		Quantity:   1,
		UnitPrice:  money.INR(150),
	})
	b, err := NewBooking(params)
	require.NoError(t, err)

	assert.Equal(t, "prov-1", b.ProviderID)
	assert.True(t, b.OwnsLineItem("prov-2"))
	assert.False(t, b.OwnsLineItem("prov-3"))
}

func TestNewBookingValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*CreateParams)
		wantErr error
	}{
		{"missing id", func(p *CreateParams) { p.ID = " " }, ErrIDRequired},
		{"missing customer", func(p *CreateParams) { p.CustomerID = "" }, ErrCustomerRequired},
		{"no line items", func(p *CreateParams) { p.LineItems = nil }, ErrNoLineItems},
		{"zero quantity", func(p *CreateParams) { p.LineItems[0].Quantity = 0 }, ErrInvalidQuantity},
		{"missing name", func(p *CreateParams) { p.CustomerInfo.Name = "" }, ErrNameMissing},
		{"short phone", func(p *CreateParams) { p.CustomerInfo.Phone = "12345" }, ErrInvalidPhone},
		{"alpha phone", func(p *CreateParams) { p.CustomerInfo.Phone = "98765abcde" }, ErrInvalidPhone},
		{"bad email", func(p *CreateParams) { p.CustomerInfo.Email = "nope" }, ErrInvalidEmail},
		{"missing address", func(p *CreateParams) { p.Address.Line1 = "" }, ErrAddressMissing},
		{"bad pincode", func(p *CreateParams) { p.Address.Pincode = "56001" }, ErrInvalidPincode},
		{"missing slot", func(p *CreateParams) { p.Scheduling.Slot = "" }, ErrScheduleMissing},
		{"missing date", func(p *CreateParams) { p.Scheduling.Date = time.Time{} }, ErrScheduleMissing},
		{"bad payment method", func(p *CreateParams) { p.PaymentMethod = "upi-later" }, ErrInvalidPaymentMethod},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)
			_, err := NewBooking(params)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSetStatusHappyPath(t *testing.T) {
	provider := Actor{ID: "prov-1", Role: "provider"}

	b := newTestBooking(t)
	require.NoError(t, b.SetStatus(StatusConfirmed, provider, "", fixedNow))
	require.NoError(t, b.SetStatus(StatusInProgress, provider, "", fixedNow))
	require.NoError(t, b.SetStatus(StatusCompleted, provider, "", fixedNow))

	assert.Equal(t, StatusCompleted, b.Status)
	assert.Equal(t, fixedNow, b.CompletedAt)
}

func TestSetStatusIllegalTransitions(t *testing.T) {
	admin := Actor{ID: "admin-1", Role: "admin"}

	cases := []struct {
		name string
		walk []Status
		to   Status
	}{
		{"pending to completed", nil, StatusCompleted},
		{"pending to in-progress", nil, StatusInProgress},
		{"confirmed to rejected", []Status{StatusConfirmed}, StatusRejected},
		{"completed is terminal", []Status{StatusConfirmed, StatusInProgress, StatusCompleted}, StatusCancelled},
		{"rejected is terminal", []Status{StatusRejected}, StatusConfirmed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBooking(t)
			for _, step := range tc.walk {
				require.NoError(t, b.SetStatus(step, admin, "operator action", fixedNow))
			}
			err := b.SetStatus(tc.to, admin, "operator action", fixedNow)
			assert.ErrorIs(t, err, ErrIllegalTransition)
		})
	}
}

func TestSetStatusRejectsUnknownTarget(t *testing.T) {
	b := newTestBooking(t)
	err := b.SetStatus(Status("shipped"), Actor{ID: "admin-1", Role: "admin"}, "", fixedNow)
	assert.ErrorIs(t, err, ErrUnknownStatus)
	assert.Equal(t, StatusPending, b.Status)
}

func TestSetStatusAuthorization(t *testing.T) {
	customer := Actor{ID: "cust-1", Role: "customer"}
	stranger := Actor{ID: "prov-9", Role: "provider"}

	b := newTestBooking(t)
	assert.ErrorIs(t, b.SetStatus(StatusConfirmed, customer, "", fixedNow), ErrActorNotAllowed)
	assert.ErrorIs(t, b.SetStatus(StatusConfirmed, stranger, "", fixedNow), ErrActorNotAllowed)
	assert.ErrorIs(t, b.SetStatus(StatusConfirmed, Actor{}, "", fixedNow), ErrActorNotAllowed)

	require.NoError(t, b.SetStatus(StatusConfirmed, Actor{ID: "prov-1", Role: "provider"}, "", fixedNow))

	// The customer may cancel their own confirmed booking, but only with a reason.
	assert.ErrorIs(t, b.SetStatus(StatusCancelled, customer, "  ", fixedNow), ErrReasonRequired)
	require.NoError(t, b.SetStatus(StatusCancelled, customer, "found another provider", fixedNow))
	assert.Equal(t, StatusCancelled, b.Status)
	assert.Equal(t, "found another provider", b.CancellationReason)
}

func TestSetServiceStatusAppendsHistory(t *testing.T) {
	provider := Actor{ID: "prov-1", Role: "provider"}
	b := newTestBooking(t)
	require.NoError(t, b.SetStatus(StatusConfirmed, provider, "", fixedNow))

	steps := []ServiceStatus{ServiceOnTheWay, ServiceInProgress, ServiceCompleted}
	for i, step := range steps {
		require.NoError(t, b.SetServiceStatus(step, provider, "", fixedNow.Add(time.Duration(i)*time.Minute)))
	}

	require.Len(t, b.ServiceStatusHistory, 4)
	assert.Equal(t, ServiceNotStarted, b.ServiceStatusHistory[0].Status)
	assert.Equal(t, ServiceOnTheWay, b.ServiceStatusHistory[1].Status)
	assert.Equal(t, ServiceInProgress, b.ServiceStatusHistory[2].Status)
	assert.Equal(t, ServiceCompleted, b.ServiceStatusHistory[3].Status)
	for i := 1; i < len(b.ServiceStatusHistory); i++ {
		assert.False(t, b.ServiceStatusHistory[i].At.Before(b.ServiceStatusHistory[i-1].At))
	}
}

func TestServiceCompletedAlsoCompletesBooking(t *testing.T) {
	provider := Actor{ID: "prov-1", Role: "provider"}
	b := newTestBooking(t)
	require.NoError(t, b.SetStatus(StatusConfirmed, provider, "", fixedNow))
	require.NoError(t, b.SetServiceStatus(ServiceOnTheWay, provider, "", fixedNow))
	require.NoError(t, b.SetServiceStatus(ServiceInProgress, provider, "", fixedNow))

	assert.Equal(t, StatusConfirmed, b.Status)

	done := fixedNow.Add(2 * time.Hour)
	require.NoError(t, b.SetServiceStatus(ServiceCompleted, provider, "all fixed", done))

	assert.Equal(t, StatusCompleted, b.Status)
	assert.Equal(t, ServiceCompleted, b.ServiceStatus)
	assert.Equal(t, done, b.CompletedAt)
}

func TestSetServiceStatusIllegalJump(t *testing.T) {
	provider := Actor{ID: "prov-1", Role: "provider"}
	b := newTestBooking(t)

	err := b.SetServiceStatus(ServiceCompleted, provider, "", fixedNow)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, ServiceNotStarted, b.ServiceStatus)
	assert.Len(t, b.ServiceStatusHistory, 1)
}

func TestSetServiceStatusAuthorization(t *testing.T) {
	b := newTestBooking(t)

	err := b.SetServiceStatus(ServiceOnTheWay, Actor{ID: "cust-1", Role: "customer"}, "", fixedNow)
	assert.ErrorIs(t, err, ErrActorNotAllowed)

	err = b.SetServiceStatus(ServiceOnTheWay, Actor{ID: "admin-1", Role: "admin"}, "", fixedNow)
	assert.NoError(t, err)
}

func TestRateRequiresCompletion(t *testing.T) {
	b := newTestBooking(t)
	assert.ErrorIs(t, b.Rate(5, "great", fixedNow), ErrNotCompleted)
}

func TestRateOnlyOnce(t *testing.T) {
	provider := Actor{ID: "prov-1", Role: "provider"}
	b := newTestBooking(t)
	require.NoError(t, b.SetStatus(StatusConfirmed, provider, "", fixedNow))
	require.NoError(t, b.SetServiceStatus(ServiceOnTheWay, provider, "", fixedNow))
	require.NoError(t, b.SetServiceStatus(ServiceInProgress, provider, "", fixedNow))
	require.NoError(t, b.SetServiceStatus(ServiceCompleted, provider, "", fixedNow))

	assert.ErrorIs(t, b.Rate(0, "", fixedNow), ErrInvalidStars)
	assert.ErrorIs(t, b.Rate(6, "", fixedNow), ErrInvalidStars)

	require.NoError(t, b.Rate(4, "  solid work ", fixedNow))
	require.NotNil(t, b.Rating)
	assert.Equal(t, 4, b.Rating.Stars)
	assert.Equal(t, "solid work", b.Rating.Comment)

	assert.ErrorIs(t, b.Rate(5, "changed my mind", fixedNow), ErrAlreadyRated)
	assert.Equal(t, 4, b.Rating.Stars)
}

func TestRecordPayment(t *testing.T) {
	b := newTestBooking(t)

	paidAt := fixedNow.Add(time.Hour)
	require.NoError(t, b.RecordPayment(PaymentCompleted, "txn-42", paidAt, fixedNow))
	assert.Equal(t, PaymentCompleted, b.Payment.Status)
	assert.Equal(t, "txn-42", b.Payment.TransactionID)

	err := b.RecordPayment(PaymentStatus("settled"), "txn-43", paidAt, fixedNow)
	assert.ErrorIs(t, err, ErrInvalidPaymentStatus)
}
