package middleware

import (
	"context"
	"errors"

	"homeease/internal/app/commands"
	"homeease/internal/app/uow"
)

var ErrUnitOfWorkMissing = errors.New("middleware: unit of work not found")

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			execCtx := ctx
			if injector, ok := unit.(interface {
				InjectContext(context.Context) context.Context
			}); ok {
				execCtx = injector.InjectContext(ctx)
			}
			execCtx = uow.ContextWithUnitOfWork(execCtx, unit)
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := nextFn(execCtx, cmd)
			if err != nil {
				if keepsChanges(err) {
					if cerr := unit.Commit(execCtx); cerr != nil {
						return nil, errors.Join(err, cerr)
					}
					committed = true
				}
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			return res, nil
		})
	}
}

// keepsChanges reports whether an error in the chain asks for the unit's
// writes to be committed anyway. Handlers return such errors when the
// primary mutation succeeded and only a follow-up projection failed.
func keepsChanges(err error) bool {
	for err != nil {
		if marker, ok := err.(interface{ KeepChanges() bool }); ok && marker.KeepChanges() {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
