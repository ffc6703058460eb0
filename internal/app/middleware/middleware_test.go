package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeease/internal/app/commands"
	"homeease/internal/app/ledger"
	"homeease/internal/app/uow"
	"homeease/internal/domain/shared/fault"
)

type stubIdempotencyStore struct {
	records map[string]IdempotencyRecord
}

func newStubIdempotencyStore() *stubIdempotencyStore {
	return &stubIdempotencyStore{records: make(map[string]IdempotencyRecord)}
}

func (s *stubIdempotencyStore) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *stubIdempotencyStore) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.records[rec.Key] = rec
	return nil
}

type echoCommand struct {
	IdemKey string
}

func (c echoCommand) Key() string            { return "test.echo" }
func (c echoCommand) IdempotencyKey() string { return c.IdemKey }
func (c echoCommand) ResultPrototype() any   { return &echoResult{} }

type echoResult struct {
	Calls int `json:"calls"`
}

type echoHandler struct {
	calls int
	fail  error
}

func (h *echoHandler) Handle(ctx context.Context, cmd echoCommand) (*echoResult, error) {
	h.calls++
	if h.fail != nil {
		return nil, h.fail
	}
	return &echoResult{Calls: h.calls}, nil
}

func newEchoBus(handler *echoHandler) commands.Bus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, echoCommand{}.Key(), handler)
	return bus
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	handler := &echoHandler{}
	bus := ChainCommands(newEchoBus(handler), Idempotency(newStubIdempotencyStore(), nil))

	first, err := bus.Dispatch(context.Background(), echoCommand{IdemKey: "req-1"})
	require.NoError(t, err)
	second, err := bus.Dispatch(context.Background(), echoCommand{IdemKey: "req-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, handler.calls)
	assert.Equal(t, first.(*echoResult).Calls, second.(*echoResult).Calls)
}

func TestIdempotencyReplaysStoredError(t *testing.T) {
	handler := &echoHandler{fail: errors.New("boom")}
	bus := ChainCommands(newEchoBus(handler), Idempotency(newStubIdempotencyStore(), nil))

	_, err := bus.Dispatch(context.Background(), echoCommand{IdemKey: "req-1"})
	require.Error(t, err)

	handler.fail = nil
	_, err = bus.Dispatch(context.Background(), echoCommand{IdemKey: "req-1"})
	require.Error(t, err)
	assert.Equal(t, 1, handler.calls)
}

func TestIdempotencyReplayKeepsFaultKind(t *testing.T) {
	handler := &echoHandler{fail: fault.New(fault.KindValidationFailed, "request failed validation")}
	bus := ChainCommands(newEchoBus(handler), Idempotency(newStubIdempotencyStore(), nil))

	_, err := bus.Dispatch(context.Background(), echoCommand{IdemKey: "req-1"})
	require.Error(t, err)

	handler.fail = nil
	_, err = bus.Dispatch(context.Background(), echoCommand{IdemKey: "req-1"})
	require.Error(t, err)

	assert.Equal(t, 1, handler.calls)
	assert.True(t, fault.Is(err, fault.KindValidationFailed))
	assert.Contains(t, err.Error(), "request failed validation")
}

func TestIdempotencySkipsBlankKey(t *testing.T) {
	handler := &echoHandler{}
	bus := ChainCommands(newEchoBus(handler), Idempotency(newStubIdempotencyStore(), nil))

	_, err := bus.Dispatch(context.Background(), echoCommand{})
	require.NoError(t, err)
	_, err = bus.Dispatch(context.Background(), echoCommand{})
	require.NoError(t, err)

	assert.Equal(t, 2, handler.calls)
}

type stubFactory struct {
	unit *trackingUnit
}

type trackingUnit struct {
	uow.UnitOfWork
	committed  bool
	rolledBack bool
}

func (u *trackingUnit) Commit(ctx context.Context) error {
	u.committed = true
	return nil
}

func (u *trackingUnit) Rollback(ctx context.Context) error {
	u.rolledBack = true
	return nil
}

func (f *stubFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	return f.unit, nil
}

type unitAwareCommand struct{}

func (unitAwareCommand) Key() string { return "test.unit_aware" }

type unitAwareHandler struct {
	sawUnit bool
	fail    error
}

func (h *unitAwareHandler) Handle(ctx context.Context, cmd unitAwareCommand) (struct{}, error) {
	_, h.sawUnit = uow.FromContext(ctx)
	return struct{}{}, h.fail
}

func TestTransactionInjectsAndCommits(t *testing.T) {
	unit := &trackingUnit{}
	handler := &unitAwareHandler{}
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, unitAwareCommand{}.Key(), handler)

	wrapped := ChainCommands(bus, Transaction(&stubFactory{unit: unit}, nil))
	_, err := wrapped.Dispatch(context.Background(), unitAwareCommand{})
	require.NoError(t, err)

	assert.True(t, handler.sawUnit)
	assert.True(t, unit.committed)
	assert.False(t, unit.rolledBack)
}

func TestTransactionRollsBackOnHandlerError(t *testing.T) {
	unit := &trackingUnit{}
	handler := &unitAwareHandler{fail: errors.New("boom")}
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, unitAwareCommand{}.Key(), handler)

	wrapped := ChainCommands(bus, Transaction(&stubFactory{unit: unit}, nil))
	_, err := wrapped.Dispatch(context.Background(), unitAwareCommand{})
	require.Error(t, err)

	assert.False(t, unit.committed)
	assert.True(t, unit.rolledBack)
}

func TestTransactionCommitsWhenErrorKeepsChanges(t *testing.T) {
	unit := &trackingUnit{}
	handler := &unitAwareHandler{fail: fault.Wrap(fault.KindStorageFault,
		"booking bk-1 is completed; ledger recompute for provider prov-1 failed and must be re-run",
		&ledger.RecomputeError{ProviderID: "prov-1", BookingID: "bk-1", Err: errors.New("ledger store offline")})}
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, unitAwareCommand{}.Key(), handler)

	wrapped := ChainCommands(bus, Transaction(&stubFactory{unit: unit}, nil))
	_, err := wrapped.Dispatch(context.Background(), unitAwareCommand{})
	require.Error(t, err)

	assert.True(t, fault.Is(err, fault.KindStorageFault))
	assert.True(t, unit.committed)
	assert.False(t, unit.rolledBack)
}
