package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeease/internal/app/uow"
	domainbooking "homeease/internal/domain/booking"
	domainprovider "homeease/internal/domain/provider"
	"homeease/internal/domain/pricing"
	"homeease/internal/domain/shared/money"
	"homeease/internal/infra/storage/memory"
)

var recomputeNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newUnit(t *testing.T) uow.UnitOfWork {
	t.Helper()
	factory := memory.Factory{
		BookingRepo:  memory.NewBookingRepository(),
		ProviderRepo: memory.NewProviderRepository(),
		CatalogRepo:  memory.NewCatalogRepository(),
	}
	unit, err := factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return unit
}

func seedProvider(t *testing.T, unit uow.UnitOfWork, id string) {
	t.Helper()
	p, err := domainprovider.NewProvider(domainprovider.CreateParams{
		ID:        id,
		Name:      "Ravi Electricals",
		CreatedAt: recomputeNow.Add(-30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, unit.Providers().Save(context.Background(), p))
}

func seedBooking(t *testing.T, unit uow.UnitOfWork, id, providerID string, unitPrice int64, quantity int, completed bool) {
	t.Helper()
	subtotal := unitPrice * int64(quantity)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(id),
		CustomerID: "cust-1",
		LineItems: []domainbooking.LineItem{{
			ServiceID:  "svc-1",
			Name:       "Wiring check",
			ProviderID: providerID,
			Quantity:   quantity,
			UnitPrice:  money.INR(unitPrice),
		}},
		Scheduling:   domainbooking.Scheduling{Date: recomputeNow, Slot: "morning"},
		CustomerInfo: domainbooking.CustomerInfo{Name: "Asha Rao", Phone: "9876543210", Email: "asha@example.com"},
		Address:      domainbooking.Address{Line1: "14 MG Road", City: "Bengaluru", Pincode: "560001"},
		Pricing: pricing.Quote{
			Subtotal:       money.INR(subtotal),
			ServiceCharges: money.INR(pricing.ServiceChargeAmount),
			Discount:       money.INR(0),
			Total:          money.INR(subtotal + pricing.ServiceChargeAmount),
		},
		PaymentMethod: domainbooking.PaymentCash,
		CreatedAt:     recomputeNow.Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	if completed {
		actor := domainbooking.Actor{ID: providerID, Role: "provider"}
		require.NoError(t, b.SetStatus(domainbooking.StatusConfirmed, actor, "", recomputeNow))
		require.NoError(t, b.SetServiceStatus(domainbooking.ServiceOnTheWay, actor, "", recomputeNow))
		require.NoError(t, b.SetServiceStatus(domainbooking.ServiceInProgress, actor, "", recomputeNow))
		require.NoError(t, b.SetServiceStatus(domainbooking.ServiceCompleted, actor, "", recomputeNow))
	}
	require.NoError(t, unit.Bookings().Save(context.Background(), b))
}

func TestRecomputeSumsCompletedBookings(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t)
	seedProvider(t, unit, "prov-1")
	seedBooking(t, unit, "bk-1", "prov-1", 100, 2, true)
	seedBooking(t, unit, "bk-2", "prov-1", 150, 1, true)
	seedBooking(t, unit, "bk-3", "prov-1", 999, 1, false)

	require.NoError(t, Recompute(ctx, unit, "prov-1", recomputeNow))

	p, err := unit.Providers().ByID(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Ledger.CompletedServiceCount)
	assert.Equal(t, int64(350), p.Ledger.LifetimeEarnings.Amount)
	assert.Equal(t, recomputeNow, p.Ledger.LastServiceDate)
}

func TestRecomputeExcludesServiceCharge(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t)
	seedProvider(t, unit, "prov-1")
	seedBooking(t, unit, "bk-1", "prov-1", 250, 1, true)

	require.NoError(t, Recompute(ctx, unit, "prov-1", recomputeNow))

	p, err := unit.Providers().ByID(ctx, "prov-1")
	require.NoError(t, err)
	// booking total was 250 + 99 fee; only the 250 reaches the provider
	assert.Equal(t, int64(250), p.Ledger.LifetimeEarnings.Amount)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t)
	seedProvider(t, unit, "prov-1")
	seedBooking(t, unit, "bk-1", "prov-1", 100, 2, true)

	require.NoError(t, Recompute(ctx, unit, "prov-1", recomputeNow))
	require.NoError(t, Recompute(ctx, unit, "prov-1", recomputeNow.Add(time.Hour)))
	require.NoError(t, Recompute(ctx, unit, "prov-1", recomputeNow.Add(2*time.Hour)))

	p, err := unit.Providers().ByID(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Ledger.CompletedServiceCount)
	assert.Equal(t, int64(200), p.Ledger.LifetimeEarnings.Amount)
}

func TestRecomputeNoCompletedBookings(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t)
	seedProvider(t, unit, "prov-1")
	seedBooking(t, unit, "bk-1", "prov-1", 100, 1, false)

	require.NoError(t, Recompute(ctx, unit, "prov-1", recomputeNow))

	p, err := unit.Providers().ByID(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Ledger.CompletedServiceCount)
	assert.Equal(t, int64(0), p.Ledger.LifetimeEarnings.Amount)
	assert.True(t, p.Ledger.LastServiceDate.IsZero())
}

func TestRecomputeUnknownProviderIsNoOp(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t)
	seedBooking(t, unit, "bk-1", "prov-ghost", 100, 1, true)

	assert.NoError(t, Recompute(ctx, unit, "prov-ghost", recomputeNow))
	assert.NoError(t, Recompute(ctx, unit, "", recomputeNow))
	assert.NoError(t, Recompute(ctx, unit, "   ", recomputeNow))
}
