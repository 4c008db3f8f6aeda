package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mehdiessalah/eventyBackend/internal/apperror"
	"github.com/mehdiessalah/eventyBackend/internal/changefeed"
	"github.com/mehdiessalah/eventyBackend/monitoring"
)

// Service holds the catalog rules: draft validation, tag normalization,
// visibility filtering and the derived queries. It performs no ownership
// checks; callers get the owner id from GetEventByID and enforce their own
// policy.
type Service struct {
	Repo      Repository
	Publisher changefeed.Publisher

	now func() time.Time
}

func NewService(r Repository, pub changefeed.Publisher) *Service {
	if pub == nil {
		pub = changefeed.Nop
	}
	return &Service{
		Repo:      r,
		Publisher: pub,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for createdAt/updatedAt.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// timestamp is truncated to what postgres keeps so both drivers agree.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// ===========================
// 🎯 Create Event
func (s *Service) CreateEvent(ctx context.Context, d Draft) (*Event, error) {
	if d.OwnerUserID == uuid.Nil {
		err := apperror.Validation("owner_user_id", "required")
		monitoring.TrackCatalogOperation("create_event", err)
		return nil, err
	}
	if err := validateDraft(d); err != nil {
		monitoring.TrackCatalogOperation("create_event", err)
		return nil, err
	}

	now := s.timestamp()
	e := &Event{
		ID:          uuid.New(),
		OwnerUserID: d.OwnerUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	d.apply(e)

	if err := s.Repo.Create(ctx, e); err != nil {
		monitoring.TrackCatalogOperation("create_event", err)
		return nil, err
	}
	monitoring.TrackCatalogOperation("create_event", nil)

	slog.InfoContext(ctx, "event created", "event_id", e.ID, "owner_user_id", e.OwnerUserID, "is_public", e.IsPublic)
	s.publish(ctx, changefeed.EventCreated, e.ID, e.OwnerUserID)
	return e, nil
}

// ===========================
// 🔍 Get Event By ID
//
// GetPublicEventByID treats a private event exactly like a missing one.
func (s *Service) GetPublicEventByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	e, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.IsPublic {
		return nil, apperror.NotFound("event", id)
	}
	return e, nil
}

// GetEventByID ignores visibility. Owner-scoped callers use it to read
// OwnerUserID before mutating.
func (s *Service) GetEventByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *Service) EventExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.Repo.ExistsByID(ctx, id)
}

// ===========================
// 📄 Public listings
func (s *Service) GetAllPublicEvents(ctx context.Context) ([]Event, error) {
	return s.Repo.Find(ctx, Filter{PublicOnly: true})
}

// SearchPublicEvents matches keyword against title, description and
// location. A blank keyword lists every public event.
func (s *Service) SearchPublicEvents(ctx context.Context, keyword string) ([]Event, error) {
	return s.Repo.Find(ctx, Filter{PublicOnly: true, Keyword: strings.TrimSpace(keyword)})
}

// FindPublicBetween returns public events with from <= start <= to,
// earliest first.
func (s *Service) FindPublicBetween(ctx context.Context, from, to time.Time) ([]Event, error) {
	if from.IsZero() {
		return nil, apperror.Validation("from", "required")
	}
	if to.IsZero() {
		return nil, apperror.Validation("to", "required")
	}
	if from.After(to) {
		return nil, apperror.Validation("from", "must not be after to")
	}
	return s.Repo.Find(ctx, Filter{
		PublicOnly:   true,
		StartFrom:    &from,
		StartTo:      &to,
		OrderByStart: true,
	})
}

// ===========================
// 🛠 Update Event
func (s *Service) UpdateEvent(ctx context.Context, id uuid.UUID, d Draft) (*Event, error) {
	if err := validateDraft(d); err != nil {
		monitoring.TrackCatalogOperation("update_event", err)
		return nil, err
	}

	updated, err := s.Repo.Update(ctx, id, func(e *Event) error {
		d.apply(e)
		e.UpdatedAt = s.timestamp()
		return nil
	})
	monitoring.TrackCatalogOperation("update_event", err)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "event updated", "event_id", id)
	s.publish(ctx, changefeed.EventUpdated, id, updated.OwnerUserID)
	return updated, nil
}

// ===========================
// 📆 Update Event Dates
func (s *Service) UpdateEventDates(ctx context.Context, id uuid.UUID, start, end *time.Time) (*Event, error) {
	if start == nil || start.IsZero() {
		err := apperror.Validation("start", "required")
		monitoring.TrackCatalogOperation("update_event_dates", err)
		return nil, err
	}

	updated, err := s.Repo.Update(ctx, id, func(e *Event) error {
		e.Start = *start
		if end != nil {
			v := *end
			e.End = &v
		} else {
			e.End = nil
		}
		e.UpdatedAt = s.timestamp()
		return nil
	})
	monitoring.TrackCatalogOperation("update_event_dates", err)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "event dates updated", "event_id", id, "start", updated.Start)
	s.publish(ctx, changefeed.EventUpdated, id, updated.OwnerUserID)
	return updated, nil
}

// ===========================
// ❌ Delete Event
//
// Subscriptions pointing at the event are left in place.
func (s *Service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	err := s.Repo.DeleteByID(ctx, id)
	monitoring.TrackCatalogOperation("delete_event", err)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "event deleted", "event_id", id)
	s.publish(ctx, changefeed.EventDeleted, id, uuid.Nil)
	return nil
}

// ===========================
// 🔎 Derived queries

// FindByCategory matches category case-insensitively and exactly, public
// events only.
func (s *Service) FindByCategory(ctx context.Context, category string) ([]Event, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperror.Validation("category", "required")
	}
	return s.Repo.Find(ctx, Filter{PublicOnly: true, Category: category})
}

func (s *Service) FindByTag(ctx context.Context, tag string) ([]Event, error) {
	tag = NormalizeTag(tag)
	if tag == "" {
		return nil, apperror.Validation("tag", "required")
	}
	return s.Repo.Find(ctx, Filter{PublicOnly: true, Tag: tag})
}

// FindUpcoming returns at most limit public events starting at or after
// now, earliest first. Equal starts keep storage order.
func (s *Service) FindUpcoming(ctx context.Context, now time.Time, limit int) ([]Event, error) {
	if limit <= 0 {
		return []Event{}, nil
	}
	return s.Repo.Find(ctx, Filter{
		PublicOnly:   true,
		StartFrom:    &now,
		OrderByStart: true,
		Limit:        limit,
	})
}

// FindByOwner is the one listing that ignores visibility.
func (s *Service) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]Event, error) {
	if ownerID == uuid.Nil {
		return nil, apperror.Validation("owner_user_id", "required")
	}
	return s.Repo.Find(ctx, Filter{OwnerID: ownerID})
}

func (s *Service) ListDistinctCategories(ctx context.Context) ([]string, error) {
	return s.Repo.DistinctPublicCategories(ctx)
}

func (s *Service) ListDistinctTags(ctx context.Context) ([]string, error) {
	return s.Repo.DistinctPublicTags(ctx)
}

// publish never fails the caller; the mutation is already committed.
func (s *Service) publish(ctx context.Context, typ changefeed.Type, eventID, userID uuid.UUID) {
	change := changefeed.Change{
		Type:       typ,
		EventID:    eventID,
		UserID:     userID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.Publisher.Publish(ctx, change); err != nil {
		slog.WarnContext(ctx, "publish change failed", "type", typ, "event_id", eventID, "error", err)
	}
}

var maxLengths = []struct {
	field string
	max   int
	value func(Draft) string
}{
	{"description", 1000, func(d Draft) string { return d.Description }},
	{"location", 255, func(d Draft) string { return d.Location }},
	{"color", 50, func(d Draft) string { return d.Color }},
	{"category", 50, func(d Draft) string { return d.Category }},
	{"organizer", 255, func(d Draft) string { return d.Organizer }},
	{"contact_email", 255, func(d Draft) string { return d.ContactEmail }},
	{"thumbnail", 255, func(d Draft) string { return d.Thumbnail }},
}

func validateDraft(d Draft) error {
	if strings.TrimSpace(d.Title) == "" {
		return apperror.Validation("title", "required")
	}
	if utf8.RuneCountInString(d.Title) > 255 {
		return apperror.Validation("title", "must be at most 255 characters")
	}
	if d.Start.IsZero() {
		return apperror.Validation("start", "required")
	}
	for _, m := range maxLengths {
		if utf8.RuneCountInString(m.value(d)) > m.max {
			return apperror.Validation(m.field, fmt.Sprintf("must be at most %d characters", m.max))
		}
	}
	for i, img := range d.Images {
		if strings.TrimSpace(img.URL) == "" {
			return apperror.Validation(fmt.Sprintf("images[%d].url", i), "required")
		}
		if utf8.RuneCountInString(img.Caption) > 255 {
			return apperror.Validation(fmt.Sprintf("images[%d].caption", i), "must be at most 255 characters")
		}
	}
	if d.Attendees < 0 {
		return apperror.Validation("attendees", "must not be negative")
	}
	if d.MaxAttendees < 0 {
		return apperror.Validation("max_attendees", "must not be negative")
	}
	return nil
}
