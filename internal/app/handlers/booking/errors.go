package booking

import (
	"errors"

	domainbooking "homeease/internal/domain/booking"
	domaincatalog "homeease/internal/domain/catalog"
	domainprovider "homeease/internal/domain/provider"
	"homeease/internal/domain/pricing"
	"homeease/internal/domain/shared/fault"
	"homeease/internal/domain/shared/money"
)

var creationFaults = []error{
	domainbooking.ErrIDRequired,
	domainbooking.ErrCustomerRequired,
	domainbooking.ErrNoLineItems,
	domainbooking.ErrInvalidQuantity,
	domainbooking.ErrNameMissing,
	domainbooking.ErrAddressMissing,
	domainbooking.ErrScheduleMissing,
	pricing.ErrNoLineItems,
	pricing.ErrInvalidQuantity,
	pricing.ErrCurrencyUnset,
	money.ErrCurrencyMismatch,
	domaincatalog.ErrInactive,
}

// classify tags domain sentinels with the stable fault kinds the API layer
// translates into status codes. Unknown errors pass through untouched and
// surface as internal faults.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if _, tagged := fault.KindOf(err); tagged {
		return err
	}
	switch {
	case errors.Is(err, domainbooking.ErrNotFound),
		errors.Is(err, domaincatalog.ErrNotFound),
		errors.Is(err, domainprovider.ErrNotFound):
		return fault.Wrap(fault.KindNotFound, "resource not found", err)
	case errors.Is(err, domainbooking.ErrUnknownStatus),
		errors.Is(err, domainbooking.ErrUnknownServiceStatus),
		errors.Is(err, domainbooking.ErrIllegalTransition):
		return fault.Wrap(fault.KindInvalidTransitionTarget, "transition not allowed", err)
	case errors.Is(err, domainbooking.ErrActorNotAllowed):
		return fault.Wrap(fault.KindUnauthorized, "actor may not perform this action", err)
	case errors.Is(err, domainbooking.ErrReasonRequired),
		errors.Is(err, domainbooking.ErrInvalidStars),
		errors.Is(err, domainbooking.ErrInvalidPhone),
		errors.Is(err, domainbooking.ErrInvalidPincode),
		errors.Is(err, domainbooking.ErrInvalidEmail),
		errors.Is(err, domainbooking.ErrInvalidPaymentMethod):
		return fault.Wrap(fault.KindValidationFailed, "request failed validation", err)
	case errors.Is(err, domainbooking.ErrAlreadyRated):
		return fault.Wrap(fault.KindAlreadyRated, "booking already rated", err)
	case errors.Is(err, domainbooking.ErrNotCompleted):
		return fault.Wrap(fault.KindNotCompleted, "booking not completed", err)
	}
	for _, sentinel := range creationFaults {
		if errors.Is(err, sentinel) {
			return fault.Wrap(fault.KindInvalidBookingRequest, "booking request rejected", err)
		}
	}
	return err
}
