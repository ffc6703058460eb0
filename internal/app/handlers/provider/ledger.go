package provider

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"homeease/internal/app/commands"
	"homeease/internal/app/dto"
	handlersupport "homeease/internal/app/handlers/support"
	"homeease/internal/app/ledger"
	"homeease/internal/app/queries"
	"homeease/internal/app/uow"
	domainprovider "homeease/internal/domain/provider"
	"homeease/internal/domain/shared/fault"
)

const (
	getLedgerKey       = "provider.ledger.get"
	recomputeLedgerKey = "provider.ledger.recompute"
)

type GetLedgerQuery struct {
	ProviderID string
}

func (q GetLedgerQuery) Key() string { return getLedgerKey }

type GetLedgerHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetLedgerHandler) Handle(ctx context.Context, q GetLedgerQuery) (dto.LedgerSnapshot, error) {
	providerID := strings.TrimSpace(q.ProviderID)
	if providerID == "" {
		return dto.LedgerSnapshot{}, fault.New(fault.KindValidationFailed, "provider id is required")
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.LedgerSnapshot{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	p, err := unit.Providers().ByID(execCtx, providerID)
	if err != nil {
		if errors.Is(err, domainprovider.ErrNotFound) {
			return dto.LedgerSnapshot{}, fault.Wrap(fault.KindNotFound, "provider not found", err)
		}
		return dto.LedgerSnapshot{}, err
	}
	return dto.MapLedger(p.ID, p.Ledger), nil
}

// RecomputeLedgerCommand lets an operator rebuild a provider's ledger out of
// band, for instance after a manual booking correction.
type RecomputeLedgerCommand struct {
	ProviderID string
}

func (c RecomputeLedgerCommand) Key() string { return recomputeLedgerKey }

type RecomputeLedgerResult struct {
	Ledger dto.LedgerSnapshot `json:"ledger"`
}

type RecomputeLedgerHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *RecomputeLedgerHandler) Handle(ctx context.Context, cmd RecomputeLedgerCommand) (*RecomputeLedgerResult, error) {
	providerID := strings.TrimSpace(cmd.ProviderID)
	if providerID == "" {
		return nil, fault.New(fault.KindValidationFailed, "provider id is required")
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	if _, err := unit.Providers().ByID(ctx, providerID); err != nil {
		if errors.Is(err, domainprovider.ErrNotFound) {
			return nil, fault.Wrap(fault.KindNotFound, "provider not found", err)
		}
		return nil, err
	}

	now := h.now()
	if err := ledger.Recompute(ctx, unit, providerID, now); err != nil {
		return nil, fault.Wrap(fault.KindStorageFault, "ledger recompute failed", err)
	}

	p, err := unit.Providers().ByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("provider ledger recomputed",
			"provider_id", providerID,
			"completed_count", p.Ledger.CompletedServiceCount,
			"earnings", p.Ledger.LifetimeEarnings.Amount,
		)
	}
	return &RecomputeLedgerResult{Ledger: dto.MapLedger(p.ID, p.Ledger)}, nil
}

func (h *RecomputeLedgerHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var _ queries.Handler[GetLedgerQuery, dto.LedgerSnapshot] = (*GetLedgerHandler)(nil)
var _ commands.Handler[RecomputeLedgerCommand, *RecomputeLedgerResult] = (*RecomputeLedgerHandler)(nil)
