package memory

import (
	"context"
	"sync"

	appoutbox "homeease/internal/app/outbox"
)

// Outbox buffers events in memory until flushed. When a Publisher is set,
// Flush hands the buffered records to it; otherwise they are dropped, which
// is the behavior wanted when no broker is configured.
type Outbox struct {
	Publisher func(ctx context.Context, records []appoutbox.EventRecord) error

	mu      sync.Mutex
	records []appoutbox.EventRecord
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := o.records
	o.records = nil
	o.mu.Unlock()
	if o.Publisher == nil || len(pending) == 0 {
		return nil
	}
	return o.Publisher(ctx, pending)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
