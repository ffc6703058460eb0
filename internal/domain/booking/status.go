package booking

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUnknownStatus        = errors.New("booking: unknown booking status")
	ErrUnknownServiceStatus = errors.New("booking: unknown service status")
	ErrIllegalTransition    = errors.New("booking: transition not allowed from current status")
	ErrActorNotAllowed      = errors.New("booking: actor may not perform this transition")
	ErrReasonRequired       = errors.New("booking: cancellation reason is required")
	ErrAlreadyRated         = errors.New("booking: already rated")
	ErrNotCompleted         = errors.New("booking: not completed")
	ErrInvalidStars         = errors.New("booking: rating must be between 1 and 5")
)

// Status is the coarse order lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusRejected   Status = "rejected"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ServiceStatus is the fine-grained, audited delivery state.
type ServiceStatus string

const (
	ServiceNotStarted ServiceStatus = "not-started"
	ServiceOnTheWay   ServiceStatus = "on-the-way"
	ServiceInProgress ServiceStatus = "in-progress"
	ServiceCompleted  ServiceStatus = "completed"
	ServiceCancelled  ServiceStatus = "cancelled"
)

// HistoryEntry is one line of the append-only service status audit log.
type HistoryEntry struct {
	Status ServiceStatus
	At     time.Time
	Actor  string
	Notes  string
}

var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusRejected},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

var serviceTransitions = map[ServiceStatus][]ServiceStatus{
	ServiceNotStarted: {ServiceOnTheWay},
	ServiceOnTheWay:   {ServiceInProgress},
	ServiceInProgress: {ServiceCompleted, ServiceCancelled},
}

// ParseStatus validates a caller-supplied status token.
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected, StatusInProgress, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", ErrUnknownStatus
}

// ParseServiceStatus validates a caller-supplied service status token.
func ParseServiceStatus(value string) (ServiceStatus, error) {
	s := ServiceStatus(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case ServiceNotStarted, ServiceOnTheWay, ServiceInProgress, ServiceCompleted, ServiceCancelled:
		return s, nil
	}
	return "", ErrUnknownServiceStatus
}

func transitionAllowed[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SetStatus drives the coarse lifecycle machine. Authorization and
// transition legality are rejected before any field changes.
func (b *Booking) SetStatus(target Status, actor Actor, reason string, now time.Time) error {
	if _, err := ParseStatus(string(target)); err != nil {
		return err
	}
	if !transitionAllowed(statusTransitions, b.Status, target) {
		return ErrIllegalTransition
	}
	reason = strings.TrimSpace(reason)
	if err := b.authorizeStatus(target, actor, reason); err != nil {
		return err
	}

	now = now.UTC()
	from := b.Status
	b.Status = target
	b.UpdatedAt = now
	switch target {
	case StatusCompleted:
		b.CompletedAt = now
	case StatusCancelled:
		b.CancelledAt = now
		b.CancellationReason = reason
	}
	b.Record(StatusChanged{BookingID: b.ID, From: from, To: target, Actor: actor.ID, Reason: reason, At: now})
	if target == StatusCompleted {
		b.Record(Completed{BookingID: b.ID, ProviderID: b.ProviderID, Total: b.Pricing.Total, At: now})
	}
	return nil
}

func (b *Booking) authorizeStatus(target Status, actor Actor, reason string) error {
	if actor.ID == "" {
		return ErrActorNotAllowed
	}
	switch target {
	case StatusConfirmed, StatusRejected, StatusInProgress, StatusCompleted:
		if actor.IsAdmin() || actor.ID == b.ProviderID {
			return nil
		}
		return ErrActorNotAllowed
	case StatusCancelled:
		allowed := actor.IsAdmin() || actor.ID == b.CustomerID || actor.ID == b.ProviderID
		if !allowed {
			return ErrActorNotAllowed
		}
		if reason == "" {
			return ErrReasonRequired
		}
		return nil
	}
	return ErrActorNotAllowed
}

// SetServiceStatus drives the delivery machine, appending one audit entry
// per transition. Reaching completed also completes the booking itself in
// the same mutation, so any reader of the aggregate observes both fields
// flip together.
func (b *Booking) SetServiceStatus(target ServiceStatus, actor Actor, notes string, now time.Time) error {
	if _, err := ParseServiceStatus(string(target)); err != nil {
		return err
	}
	if !transitionAllowed(serviceTransitions, b.ServiceStatus, target) {
		return ErrIllegalTransition
	}
	if !actor.IsAdmin() && !b.OwnsLineItem(actor.ID) {
		return ErrActorNotAllowed
	}

	now = now.UTC()
	from := b.ServiceStatus
	b.ServiceStatus = target
	b.ServiceStatusHistory = append(b.ServiceStatusHistory, HistoryEntry{
		Status: target,
		At:     now,
		Actor:  actor.ID,
		Notes:  strings.TrimSpace(notes),
	})
	b.UpdatedAt = now
	b.Record(ServiceStatusChanged{BookingID: b.ID, From: from, To: target, Actor: actor.ID, At: now})

	if target == ServiceCompleted {
		prev := b.Status
		b.Status = StatusCompleted
		b.CompletedAt = now
		if prev != StatusCompleted {
			b.Record(StatusChanged{BookingID: b.ID, From: prev, To: StatusCompleted, Actor: actor.ID, At: now})
			b.Record(Completed{BookingID: b.ID, ProviderID: b.ProviderID, Total: b.Pricing.Total, At: now})
		}
	}
	return nil
}

// Rate records the one-shot customer rating. The repository enforces the
// same precondition with a conditional write; this method covers in-process
// callers and keeps the invariant visible on the aggregate.
func (b *Booking) Rate(stars int, comment string, now time.Time) error {
	if b.Status != StatusCompleted {
		return ErrNotCompleted
	}
	if b.Rating != nil {
		return ErrAlreadyRated
	}
	if stars < 1 || stars > 5 {
		return ErrInvalidStars
	}
	now = now.UTC()
	b.Rating = &Rating{Stars: stars, Comment: strings.TrimSpace(comment), RatedAt: now}
	b.UpdatedAt = now
	b.Record(Rated{BookingID: b.ID, Stars: stars, At: now})
	return nil
}
