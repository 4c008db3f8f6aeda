package changefeed

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	EventCreated        Type = "event.created"
	EventUpdated        Type = "event.updated"
	EventDeleted        Type = "event.deleted"
	SubscriptionCreated Type = "subscription.created"
	SubscriptionDeleted Type = "subscription.deleted"
)

// Change describes one committed mutation of the catalog or of a membership.
type Change struct {
	Type       Type      `json:"type"`
	EventID    uuid.UUID `json:"event_id"`
	UserID     uuid.UUID `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// IsCatalogChange reports whether the change touched event records.
func (c Change) IsCatalogChange() bool {
	return c.Type == EventCreated || c.Type == EventUpdated || c.Type == EventDeleted
}

// Publisher delivers changes to a sink.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, c Change) error

func (f PublisherFunc) Publish(ctx context.Context, c Change) error { return f(ctx, c) }

// Nop drops every change.
var Nop Publisher = PublisherFunc(func(context.Context, Change) error { return nil })

type multi []Publisher

// Multi fans a change out to every non-nil publisher. All sinks are tried;
// their errors are joined.
func Multi(pubs ...Publisher) Publisher {
	var m multi
	for _, p := range pubs {
		if p != nil {
			m = append(m, p)
		}
	}
	return m
}

func (m multi) Publish(ctx context.Context, c Change) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
