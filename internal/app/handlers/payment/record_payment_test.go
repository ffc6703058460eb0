package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeease/internal/app/uow"
	domainbooking "homeease/internal/domain/booking"
	"homeease/internal/domain/pricing"
	"homeease/internal/domain/shared/fault"
	"homeease/internal/domain/shared/money"
	"homeease/internal/infra/storage/memory"
)

var paymentNow = time.Date(2026, 8, 2, 15, 0, 0, 0, time.UTC)

func seededContext(t *testing.T) context.Context {
	t.Helper()
	factory := memory.Factory{
		BookingRepo:  memory.NewBookingRepository(),
		ProviderRepo: memory.NewProviderRepository(),
		CatalogRepo:  memory.NewCatalogRepository(),
	}
	unit, err := factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)

	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         "bk-pay",
		CustomerID: "cust-1",
		LineItems: []domainbooking.LineItem{{
			ServiceID:  "svc-1",
			Name:       "Geyser install",
			ProviderID: "prov-1",
			Quantity:   1,
			UnitPrice:  money.INR(500),
		}},
		Scheduling:   domainbooking.Scheduling{Date: paymentNow, Slot: "afternoon"},
		CustomerInfo: domainbooking.CustomerInfo{Name: "Asha Rao", Phone: "9876543210", Email: "asha@example.com"},
		Address:      domainbooking.Address{Line1: "14 MG Road", City: "Bengaluru", Pincode: "560001"},
		Pricing: pricing.Quote{
			Subtotal:       money.INR(500),
			ServiceCharges: money.INR(99),
			Discount:       money.INR(0),
			Total:          money.INR(599),
		},
		PaymentMethod: domainbooking.PaymentCard,
		CreatedAt:     paymentNow,
	})
	require.NoError(t, err)
	require.NoError(t, unit.Bookings().Save(context.Background(), b))

	return uow.ContextWithUnitOfWork(context.Background(), unit)
}

func TestRecordPayment(t *testing.T) {
	ctx := seededContext(t)
	handler := &RecordPaymentHandler{Now: func() time.Time { return paymentNow }}

	res, err := handler.Handle(ctx, RecordPaymentCommand{
		BookingID:     "bk-pay",
		Status:        "COMPLETED",
		TransactionID: "txn-42",
		PaidAt:        paymentNow,
	})
	require.NoError(t, err)
	assert.Equal(t, "bk-pay", res.BookingID)
	assert.Equal(t, "completed", res.Status)

	unit, _ := uow.FromContext(ctx)
	b, err := unit.Bookings().ByID(ctx, "bk-pay")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.PaymentCompleted, b.Payment.Status)
	assert.Equal(t, "txn-42", b.Payment.TransactionID)
}

func TestRecordPaymentUnknownStatus(t *testing.T) {
	ctx := seededContext(t)
	handler := &RecordPaymentHandler{}

	_, err := handler.Handle(ctx, RecordPaymentCommand{BookingID: "bk-pay", Status: "settled"})
	assert.True(t, fault.Is(err, fault.KindValidationFailed))
}

func TestRecordPaymentMissingBooking(t *testing.T) {
	ctx := seededContext(t)
	handler := &RecordPaymentHandler{}

	_, err := handler.Handle(ctx, RecordPaymentCommand{BookingID: "bk-ghost", Status: "completed"})
	assert.True(t, fault.Is(err, fault.KindNotFound))

	_, err = handler.Handle(ctx, RecordPaymentCommand{Status: "completed"})
	assert.True(t, fault.Is(err, fault.KindValidationFailed))
}
