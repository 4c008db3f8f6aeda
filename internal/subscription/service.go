package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mehdiessalah/eventyBackend/internal/apperror"
	"github.com/mehdiessalah/eventyBackend/internal/changefeed"
	"github.com/mehdiessalah/eventyBackend/monitoring"
)

// EventLookup answers whether an event exists, whatever its visibility.
type EventLookup interface {
	EventExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service keeps memberships idempotent: subscribe and unsubscribe can be
// retried any number of times and converge on the same state.
type Service struct {
	Repo      Repository
	Events    EventLookup
	Publisher changefeed.Publisher

	now func() time.Time
}

func NewService(r Repository, events EventLookup, pub changefeed.Publisher) *Service {
	if pub == nil {
		pub = changefeed.Nop
	}
	return &Service{
		Repo:      r,
		Events:    events,
		Publisher: pub,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for subscribedAt.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListSubscribedEventIDs returns each subscribed event once, oldest
// subscription first.
func (s *Service) ListSubscribedEventIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, apperror.Validation("user_id", "required")
	}

	subs, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(subs))
	seen := make(map[uuid.UUID]struct{}, len(subs))
	for _, sub := range subs {
		if _, ok := seen[sub.EventID]; ok {
			continue
		}
		seen[sub.EventID] = struct{}{}
		ids = append(ids, sub.EventID)
	}
	return ids, nil
}

// ===========================
// ⭐ Subscribe
//
// Private events are subscribable; only existence is checked. An existing
// membership is left untouched.
func (s *Service) Subscribe(ctx context.Context, userID, eventID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperror.Validation("user_id", "required")
	}

	exists, err := s.Events.EventExists(ctx, eventID)
	if err != nil {
		monitoring.TrackMembershipChange("subscribe", "error")
		return err
	}
	if !exists {
		monitoring.TrackMembershipChange("subscribe", "event_not_found")
		return apperror.NotFound("event", eventID)
	}

	created, err := s.Repo.Insert(ctx, &Subscription{
		UserID:       userID,
		EventID:      eventID,
		SubscribedAt: s.now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		monitoring.TrackMembershipChange("subscribe", "error")
		return err
	}
	if !created {
		monitoring.TrackMembershipChange("subscribe", "already_subscribed")
		return nil
	}

	monitoring.TrackMembershipChange("subscribe", "created")
	slog.InfoContext(ctx, "subscribed", "user_id", userID, "event_id", eventID)
	s.publish(ctx, changefeed.SubscriptionCreated, userID, eventID)
	return nil
}

// ===========================
// 🚫 Unsubscribe
func (s *Service) Unsubscribe(ctx context.Context, userID, eventID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperror.Validation("user_id", "required")
	}

	removed, err := s.Repo.Delete(ctx, userID, eventID)
	if err != nil {
		monitoring.TrackMembershipChange("unsubscribe", "error")
		return err
	}
	if !removed {
		monitoring.TrackMembershipChange("unsubscribe", "not_subscribed")
		return nil
	}

	monitoring.TrackMembershipChange("unsubscribe", "removed")
	slog.InfoContext(ctx, "unsubscribed", "user_id", userID, "event_id", eventID)
	s.publish(ctx, changefeed.SubscriptionDeleted, userID, eventID)
	return nil
}

func (s *Service) IsSubscribed(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	return s.Repo.Exists(ctx, userID, eventID)
}

func (s *Service) CountSubscribers(ctx context.Context, eventID uuid.UUID) (int64, error) {
	return s.Repo.CountByEvent(ctx, eventID)
}

func (s *Service) publish(ctx context.Context, typ changefeed.Type, userID, eventID uuid.UUID) {
	err := s.Publisher.Publish(ctx, changefeed.Change{
		Type:       typ,
		EventID:    eventID,
		UserID:     userID,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		slog.WarnContext(ctx, "publish change failed", "type", typ, "event_id", eventID, "error", err)
	}
}
