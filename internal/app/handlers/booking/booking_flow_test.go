package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeease/internal/app/ledger"
	"homeease/internal/app/uow"
	domainbooking "homeease/internal/domain/booking"
	domaincatalog "homeease/internal/domain/catalog"
	domainprovider "homeease/internal/domain/provider"
	"homeease/internal/domain/promo"
	"homeease/internal/domain/shared/fault"
	"homeease/internal/domain/shared/money"
	"homeease/internal/domain/user"
	"homeease/internal/infra/storage/memory"
)

var flowNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	factory memory.Factory
	create  *CreateBookingHandler
	status  *SetBookingStatusHandler
	service *SetServiceStatusHandler
	rate    *RateBookingHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	factory := memory.Factory{
		BookingRepo:  memory.NewBookingRepository(),
		ProviderRepo: memory.NewProviderRepository(),
		CatalogRepo:  memory.NewCatalogRepository(),
	}

	ctx := context.Background()
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)

	p, err := domainprovider.NewProvider(domainprovider.CreateParams{
		ID: "prov-1", Name: "Ravi Electricals", CreatedAt: flowNow,
	})
	require.NoError(t, err)
	require.NoError(t, unit.Providers().Save(ctx, p))

	svc, err := domaincatalog.NewService(domaincatalog.CreateParams{
		ID:         "svc-clean",
		Name:       "Deep cleaning",
		Category:   "cleaning",
		ProviderID: "prov-1",
		UnitPrice:  money.INR(250),
		Active:     true,
		CreatedAt:  flowNow,
	})
	require.NoError(t, err)
	require.NoError(t, unit.Catalog().Save(ctx, svc))

	inactive, err := domaincatalog.NewService(domaincatalog.CreateParams{
		ID:         "svc-retired",
		Name:       "Sofa shampoo",
		Category:   "cleaning",
		ProviderID: "prov-1",
		UnitPrice:  money.INR(400),
		Active:     false,
		CreatedAt:  flowNow,
	})
	require.NoError(t, err)
	require.NoError(t, unit.Catalog().Save(ctx, inactive))
	require.NoError(t, unit.Commit(ctx))

	promos := promo.NewTable(map[string]float64{"SAVE50": 50, "FIRST10": 0.10})
	now := func() time.Time { return flowNow }

	return &fixture{
		factory: factory,
		create:  &CreateBookingHandler{UoWFactory: factory, Promos: promos, Now: now},
		status:  &SetBookingStatusHandler{Now: now},
		service: &SetServiceStatusHandler{Now: now},
		rate:    &RateBookingHandler{Now: now},
	}
}

func (f *fixture) unitCtx(t *testing.T) context.Context {
	t.Helper()
	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return uow.ContextWithUnitOfWork(context.Background(), unit)
}

func createCommand() CreateBookingCommand {
	return CreateBookingCommand{
		CommandID:     "bk-flow-1",
		CustomerID:    "cust-1",
		LineItems:     []LineItemInput{{ServiceID: "svc-clean", Quantity: 1}},
		Date:          flowNow.AddDate(0, 0, 3),
		Slot:          "morning",
		CustomerName:  "Asha Rao",
		Phone:         "9876543210",
		Email:         "asha@example.com",
		AddressLine1:  "14 MG Road",
		City:          "Bengaluru",
		Pincode:       "560001",
		PromoCode:     "SAVE50",
		PaymentMethod: "cash",
	}
}

func TestCreateBookingPricesFromCatalog(t *testing.T) {
	f := newFixture(t)

	res, err := f.create.Handle(context.Background(), createCommand())
	require.NoError(t, err)

	b := res.Booking
	assert.Equal(t, "pending", b.Status)
	assert.Equal(t, "not-started", b.ServiceStatus)
	assert.Equal(t, "prov-1", b.ProviderID)
	assert.Equal(t, int64(250), b.Pricing.Subtotal.Amount)
	assert.Equal(t, int64(99), b.Pricing.ServiceCharges.Amount)
	assert.Equal(t, int64(50), b.Pricing.Discount.Amount)
	assert.Equal(t, int64(299), b.Pricing.Total.Amount)
	require.NotNil(t, b.PromoApplied)
	assert.Equal(t, "SAVE50", b.PromoApplied.Code)
	require.Len(t, b.ServiceStatusHistory, 1)
}

func TestCreateBookingUnknownService(t *testing.T) {
	f := newFixture(t)

	cmd := createCommand()
	cmd.LineItems = []LineItemInput{{ServiceID: "svc-ghost", Quantity: 1}}
	_, err := f.create.Handle(context.Background(), cmd)
	assert.True(t, fault.Is(err, fault.KindInvalidBookingRequest))
}

func TestCreateBookingInactiveService(t *testing.T) {
	f := newFixture(t)

	cmd := createCommand()
	cmd.LineItems = []LineItemInput{{ServiceID: "svc-retired", Quantity: 1}}
	_, err := f.create.Handle(context.Background(), cmd)
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindInvalidBookingRequest))
	assert.ErrorIs(t, err, domaincatalog.ErrInactive)
}

func TestCreateBookingValidationFaults(t *testing.T) {
	f := newFixture(t)

	// Malformed field input is a validation failure; only structural
	// problems with the request itself reject the booking outright.
	cmd := createCommand()
	cmd.Phone = "12"
	_, err := f.create.Handle(context.Background(), cmd)
	assert.True(t, fault.Is(err, fault.KindValidationFailed))

	cmd = createCommand()
	cmd.Pincode = "56"
	_, err = f.create.Handle(context.Background(), cmd)
	assert.True(t, fault.Is(err, fault.KindValidationFailed))

	cmd = createCommand()
	cmd.Email = "not-an-email"
	_, err = f.create.Handle(context.Background(), cmd)
	assert.True(t, fault.Is(err, fault.KindValidationFailed))

	cmd = createCommand()
	cmd.PaymentMethod = "crypto"
	_, err = f.create.Handle(context.Background(), cmd)
	assert.True(t, fault.Is(err, fault.KindValidationFailed))

	cmd = createCommand()
	cmd.LineItems = nil
	_, err = f.create.Handle(context.Background(), cmd)
	assert.True(t, fault.Is(err, fault.KindInvalidBookingRequest))
}

func TestFullLifecycleUpdatesLedger(t *testing.T) {
	f := newFixture(t)
	provider := domainbooking.Actor{ID: "prov-1", Role: user.RoleProvider}

	created, err := f.create.Handle(context.Background(), createCommand())
	require.NoError(t, err)
	bookingID := created.Booking.ID

	ctx := f.unitCtx(t)
	_, err = f.status.Handle(ctx, SetBookingStatusCommand{
		BookingID: bookingID, Target: "confirmed", Actor: provider,
	})
	require.NoError(t, err)

	for _, step := range []string{"on-the-way", "in-progress"} {
		_, err = f.service.Handle(ctx, SetServiceStatusCommand{
			BookingID: bookingID, Target: step, Actor: provider,
		})
		require.NoError(t, err)
	}

	res, err := f.service.Handle(ctx, SetServiceStatusCommand{
		BookingID: bookingID, Target: "completed", Notes: "all done", Actor: provider,
	})
	require.NoError(t, err)

	assert.Equal(t, "completed", res.Booking.Status)
	assert.Equal(t, "completed", res.Booking.ServiceStatus)
	require.Len(t, res.Booking.ServiceStatusHistory, 4)

	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	p, err := unit.Providers().ByID(context.Background(), "prov-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Ledger.CompletedServiceCount)
	// 250 earned; the 99 platform fee and the 50 discount never touch the ledger
	assert.Equal(t, int64(250), p.Ledger.LifetimeEarnings.Amount)
	assert.Equal(t, flowNow, p.Ledger.LastServiceDate)
}

func TestSetBookingStatusRejectsIllegalTarget(t *testing.T) {
	f := newFixture(t)
	provider := domainbooking.Actor{ID: "prov-1", Role: user.RoleProvider}

	created, err := f.create.Handle(context.Background(), createCommand())
	require.NoError(t, err)

	ctx := f.unitCtx(t)
	_, err = f.status.Handle(ctx, SetBookingStatusCommand{
		BookingID: created.Booking.ID, Target: "completed", Actor: provider,
	})
	assert.True(t, fault.Is(err, fault.KindInvalidTransitionTarget))

	_, err = f.status.Handle(ctx, SetBookingStatusCommand{
		BookingID: created.Booking.ID, Target: "shipped", Actor: provider,
	})
	assert.True(t, fault.Is(err, fault.KindInvalidTransitionTarget))
}

func TestSetBookingStatusUnauthorizedActor(t *testing.T) {
	f := newFixture(t)

	created, err := f.create.Handle(context.Background(), createCommand())
	require.NoError(t, err)

	ctx := f.unitCtx(t)
	_, err = f.status.Handle(ctx, SetBookingStatusCommand{
		BookingID: created.Booking.ID,
		Target:    "confirmed",
		Actor:     domainbooking.Actor{ID: "cust-1", Role: user.RoleCustomer},
	})
	assert.True(t, fault.Is(err, fault.KindUnauthorized))
}

func TestCancellationRequiresReason(t *testing.T) {
	f := newFixture(t)
	provider := domainbooking.Actor{ID: "prov-1", Role: user.RoleProvider}
	customer := domainbooking.Actor{ID: "cust-1", Role: user.RoleCustomer}

	created, err := f.create.Handle(context.Background(), createCommand())
	require.NoError(t, err)

	ctx := f.unitCtx(t)
	_, err = f.status.Handle(ctx, SetBookingStatusCommand{
		BookingID: created.Booking.ID, Target: "confirmed", Actor: provider,
	})
	require.NoError(t, err)

	_, err = f.status.Handle(ctx, SetBookingStatusCommand{
		BookingID: created.Booking.ID, Target: "cancelled", Actor: customer,
	})
	assert.True(t, fault.Is(err, fault.KindValidationFailed))

	res, err := f.status.Handle(ctx, SetBookingStatusCommand{
		BookingID: created.Booking.ID, Target: "cancelled", Reason: "plans changed", Actor: customer,
	})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", res.Booking.Status)
	assert.Equal(t, "plans changed", res.Booking.CancellationReason)
}

func TestRateBookingOnlyAfterCompletionAndOnce(t *testing.T) {
	f := newFixture(t)
	provider := domainbooking.Actor{ID: "prov-1", Role: user.RoleProvider}
	customer := domainbooking.Actor{ID: "cust-1", Role: user.RoleCustomer}

	created, err := f.create.Handle(context.Background(), createCommand())
	require.NoError(t, err)
	bookingID := created.Booking.ID

	ctx := f.unitCtx(t)
	_, err = f.rate.Handle(ctx, RateBookingCommand{BookingID: bookingID, Stars: 5, Actor: customer})
	assert.True(t, fault.Is(err, fault.KindNotCompleted))

	_, err = f.status.Handle(ctx, SetBookingStatusCommand{BookingID: bookingID, Target: "confirmed", Actor: provider})
	require.NoError(t, err)
	for _, step := range []string{"on-the-way", "in-progress", "completed"} {
		_, err = f.service.Handle(ctx, SetServiceStatusCommand{BookingID: bookingID, Target: step, Actor: provider})
		require.NoError(t, err)
	}

	_, err = f.rate.Handle(ctx, RateBookingCommand{BookingID: bookingID, Stars: 9, Actor: customer})
	assert.True(t, fault.Is(err, fault.KindValidationFailed))

	_, err = f.rate.Handle(ctx, RateBookingCommand{
		BookingID: bookingID, Stars: 5, Actor: domainbooking.Actor{ID: "cust-2", Role: user.RoleCustomer},
	})
	assert.True(t, fault.Is(err, fault.KindUnauthorized))

	res, err := f.rate.Handle(ctx, RateBookingCommand{BookingID: bookingID, Stars: 4, Comment: "tidy work", Actor: customer})
	require.NoError(t, err)
	require.NotNil(t, res.Booking.Rating)
	assert.Equal(t, 4, res.Booking.Rating.Stars)

	_, err = f.rate.Handle(ctx, RateBookingCommand{BookingID: bookingID, Stars: 1, Actor: customer})
	assert.True(t, fault.Is(err, fault.KindAlreadyRated))
}

func TestGetBookingAuthorization(t *testing.T) {
	f := newFixture(t)

	created, err := f.create.Handle(context.Background(), createCommand())
	require.NoError(t, err)

	get := &GetBookingHandler{UoWFactory: f.factory}

	_, err = get.Handle(context.Background(), GetBookingQuery{
		BookingID: created.Booking.ID,
		Actor:     domainbooking.Actor{ID: "cust-2", Role: user.RoleCustomer},
	})
	assert.True(t, fault.Is(err, fault.KindUnauthorized))

	b, err := get.Handle(context.Background(), GetBookingQuery{
		BookingID: created.Booking.ID,
		Actor:     domainbooking.Actor{ID: "prov-1", Role: user.RoleProvider},
	})
	require.NoError(t, err)
	assert.Equal(t, created.Booking.ID, b.ID)

	_, err = get.Handle(context.Background(), GetBookingQuery{
		BookingID: "bk-ghost",
		Actor:     domainbooking.Actor{ID: "admin-1", Role: user.RoleAdmin},
	})
	assert.True(t, fault.Is(err, fault.KindNotFound))
}

func TestListBookingsFilters(t *testing.T) {
	f := newFixture(t)
	provider := domainbooking.Actor{ID: "prov-1", Role: user.RoleProvider}

	first, err := f.create.Handle(context.Background(), createCommand())
	require.NoError(t, err)

	second := createCommand()
	second.CommandID = "bk-flow-2"
	_, err = f.create.Handle(context.Background(), second)
	require.NoError(t, err)

	ctx := f.unitCtx(t)
	_, err = f.status.Handle(ctx, SetBookingStatusCommand{BookingID: first.Booking.ID, Target: "confirmed", Actor: provider})
	require.NoError(t, err)

	list := &ListCustomerBookingsHandler{UoWFactory: f.factory}
	all, err := list.Handle(context.Background(), ListCustomerBookingsQuery{CustomerID: "cust-1", Status: "all"})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	confirmed, err := list.Handle(context.Background(), ListCustomerBookingsQuery{CustomerID: "cust-1", Status: "confirmed"})
	require.NoError(t, err)
	require.Len(t, confirmed.Items, 1)
	assert.Equal(t, first.Booking.ID, confirmed.Items[0].ID)

	byProvider := &ListProviderBookingsHandler{UoWFactory: f.factory}
	mine, err := byProvider.Handle(context.Background(), ListProviderBookingsQuery{ProviderID: "prov-1"})
	require.NoError(t, err)
	assert.Len(t, mine.Items, 2)
}

type ledgerOutageUnit struct {
	uow.UnitOfWork
}

func (u ledgerOutageUnit) Providers() domainprovider.Repository {
	return offlineLedgerRepo{u.UnitOfWork.Providers()}
}

type offlineLedgerRepo struct {
	domainprovider.Repository
}

func (offlineLedgerRepo) UpdateLedger(ctx context.Context, id string, l domainprovider.Ledger) error {
	return errors.New("ledger store offline")
}

func TestServiceCompletionSurvivesLedgerOutage(t *testing.T) {
	f := newFixture(t)
	provider := domainbooking.Actor{ID: "prov-1", Role: user.RoleProvider}

	created, err := f.create.Handle(context.Background(), createCommand())
	require.NoError(t, err)
	bookingID := created.Booking.ID

	ctx := f.unitCtx(t)
	_, err = f.status.Handle(ctx, SetBookingStatusCommand{
		BookingID: bookingID, Target: "confirmed", Actor: provider,
	})
	require.NoError(t, err)
	for _, step := range []string{"on-the-way", "in-progress"} {
		_, err = f.service.Handle(ctx, SetServiceStatusCommand{
			BookingID: bookingID, Target: step, Actor: provider,
		})
		require.NoError(t, err)
	}

	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	outageCtx := uow.ContextWithUnitOfWork(context.Background(), ledgerOutageUnit{unit})
	_, err = f.service.Handle(outageCtx, SetServiceStatusCommand{
		BookingID: bookingID, Target: "completed", Actor: provider,
	})
	require.Error(t, err)

	assert.True(t, fault.Is(err, fault.KindStorageFault))
	var repair *ledger.RecomputeError
	require.ErrorAs(t, err, &repair)
	assert.Equal(t, "prov-1", repair.ProviderID)
	assert.Equal(t, bookingID, repair.BookingID)

	// The completion flip outlives the failed recompute.
	stored, err := f.factory.BookingRepo.ByID(context.Background(), domainbooking.BookingID(bookingID))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCompleted, stored.Status)
	assert.Equal(t, domainbooking.ServiceCompleted, stored.ServiceStatus)
}
