// Package ledger recomputes provider ledgers from the bookings that feed them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"homeease/internal/app/uow"
	domainprovider "homeease/internal/domain/provider"
	"homeease/internal/domain/shared/money"
)

// RecomputeError reports a recompute failure that followed a booking
// mutation which must survive it. Transaction handling keeps the unit's
// changes when the error chain carries this type, so the completed booking
// stays completed and only the provider ledger is left stale. Re-running
// Recompute for the provider repairs it.
type RecomputeError struct {
	ProviderID string
	BookingID  string
	Err        error
}

func (e *RecomputeError) Error() string {
	return fmt.Sprintf("ledger: recompute for provider %s after booking %s: %v", e.ProviderID, e.BookingID, e.Err)
}

func (e *RecomputeError) Unwrap() error { return e.Err }

// KeepChanges marks the preceding booking mutation as committed work.
func (e *RecomputeError) KeepChanges() bool { return true }

// Recompute rebuilds a provider's ledger from scratch out of that provider's
// completed bookings. It is idempotent: running it twice over the same set of
// bookings yields the same count and earnings. A blank provider id or a
// provider that has no profile is a no-op, so bookings whose primary provider
// was never registered do not fail completion.
//
// Earnings sum the snapshotted unit prices times quantities of every line
// item; the platform service charge is never attributed to providers. The
// last service date is stamped with the recompute time, not the completion
// time of any individual booking.
func Recompute(ctx context.Context, unit uow.UnitOfWork, providerID string, now time.Time) error {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil
	}

	if _, err := unit.Providers().ByID(ctx, providerID); err != nil {
		if errors.Is(err, domainprovider.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("ledger: load provider %s: %w", providerID, err)
	}

	completed, err := unit.Bookings().ListCompletedByProvider(ctx, providerID)
	if err != nil {
		return fmt.Errorf("ledger: list completed bookings for %s: %w", providerID, err)
	}

	ledger := domainprovider.Ledger{LifetimeEarnings: money.INR(0)}
	for _, b := range completed {
		for _, line := range b.LineItems {
			ledger.CompletedServiceCount += line.Quantity
			sum, err := ledger.LifetimeEarnings.Add(line.Total())
			if err != nil {
				return fmt.Errorf("ledger: accumulate earnings for %s: %w", providerID, err)
			}
			ledger.LifetimeEarnings = sum
		}
	}
	if len(completed) > 0 {
		ledger.LastServiceDate = now.UTC()
	}

	if err := unit.Providers().UpdateLedger(ctx, providerID, ledger); err != nil {
		return fmt.Errorf("ledger: update provider %s: %w", providerID, err)
	}
	return nil
}
