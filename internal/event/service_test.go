package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mehdiessalah/eventyBackend/internal/apperror"
	"github.com/mehdiessalah/eventyBackend/internal/changefeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu      sync.Mutex
	changes []changefeed.Change
	err     error
}

func (r *recorder) Publish(_ context.Context, c changefeed.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return r.err
}

func (r *recorder) types() []changefeed.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]changefeed.Type, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.Type)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *recorder, *time.Time) {
	t.Helper()
	now := baseTime
	rec := &recorder{}
	svc := NewService(NewMemoryRepository(), rec).WithClock(func() time.Time { return now })
	return svc, rec, &now
}

func draft(owner uuid.UUID, title string, start time.Time, public bool, tags ...string) Draft {
	return Draft{
		Title:       title,
		Start:       start,
		IsPublic:    public,
		Tags:        tags,
		OwnerUserID: owner,
	}
}

func ids(events []Event) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestCreateEvent_RoundTripsPublicDraft(t *testing.T) {
	svc, rec, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	end := baseTime.Add(26 * time.Hour)

	d := Draft{
		Title:        "Go Meetup",
		Description:  "Monthly talks",
		Start:        baseTime.Add(24 * time.Hour),
		End:          &end,
		Location:     "Casablanca",
		AllDay:       true,
		Draggable:    true,
		Color:        "#ff0000",
		Category:     "Tech",
		Organizer:    "Gophers",
		ContactEmail: "hello@example.com",
		Images:       []Image{{URL: "https://img/1.png", Caption: "stage", IsPrimary: true, Order: 0}},
		Thumbnail:    "https://img/thumb.png",
		Attendees:    3,
		MaxAttendees: 50,
		IsPublic:     true,
		Tags:         []string{"Go", "Backend"},
		OwnerUserID:  owner,
	}

	created, err := svc.CreateEvent(ctx, d)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, baseTime, created.CreatedAt)
	assert.Equal(t, baseTime, created.UpdatedAt)

	got, err := svc.GetPublicEventByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, d.Title, got.Title)
	assert.Equal(t, d.Description, got.Description)
	assert.Equal(t, d.Start, got.Start)
	assert.Equal(t, end, *got.End)
	assert.Equal(t, d.Location, got.Location)
	assert.True(t, got.AllDay)
	assert.True(t, got.Draggable)
	assert.Equal(t, d.Color, got.Color)
	assert.Equal(t, d.Category, got.Category)
	assert.Equal(t, d.Organizer, got.Organizer)
	assert.Equal(t, d.ContactEmail, got.ContactEmail)
	assert.Equal(t, d.Images, []Image(got.Images))
	assert.Equal(t, d.Thumbnail, got.Thumbnail)
	assert.Equal(t, 3, got.Attendees)
	assert.Equal(t, 50, got.MaxAttendees)
	assert.Equal(t, owner, got.OwnerUserID)
	assert.Equal(t, []string{"go", "backend"}, []string(got.Tags))

	assert.Equal(t, []changefeed.Type{changefeed.EventCreated}, rec.types())
}

func TestCreateEvent_LowercasesTags(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.CreateEvent(context.Background(),
		draft(uuid.New(), "Tags", baseTime, false, "MiXeD", " ÉTÉ ", "mixed", ""))
	require.NoError(t, err)

	assert.Equal(t, []string{"mixed", "été"}, []string(created.Tags))
	for _, tag := range created.Tags {
		assert.Equal(t, NormalizeTag(tag), tag)
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	owner := uuid.New()
	tests := []struct {
		name  string
		draft Draft
		field string
	}{
		{"missing owner", draft(uuid.Nil, "t", baseTime, true), "owner_user_id"},
		{"blank title", draft(owner, "   ", baseTime, true), "title"},
		{"missing start", draft(owner, "t", time.Time{}, true), "start"},
		{"blank image url", Draft{Title: "t", Start: baseTime, OwnerUserID: owner, Images: []Image{{URL: "ok"}, {URL: " "}}}, "images[1].url"},
		{"long color", Draft{Title: "t", Start: baseTime, OwnerUserID: owner, Color: string(make([]byte, 51))}, "color"},
		{"negative attendees", Draft{Title: "t", Start: baseTime, OwnerUserID: owner, Attendees: -1}, "attendees"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, rec, _ := newTestService(t)

			_, err := svc.CreateEvent(context.Background(), tt.draft)

			require.ErrorIs(t, err, apperror.ErrValidation)
			var fe *apperror.FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
			assert.Empty(t, rec.types())
		})
	}
}

func TestCreateEvent_PublishFailureDoesNotFail(t *testing.T) {
	svc, rec, _ := newTestService(t)
	rec.err = errors.New("broker down")

	created, err := svc.CreateEvent(context.Background(), draft(uuid.New(), "t", baseTime, true))

	require.NoError(t, err)
	_, err = svc.GetEventByID(context.Background(), created.ID)
	assert.NoError(t, err)
}

func TestPrivateEvent_HiddenFromPublicButVisibleToOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	private, err := svc.CreateEvent(ctx, draft(owner, "Private", baseTime, false))
	require.NoError(t, err)

	_, err = svc.GetPublicEventByID(ctx, private.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	mine, err := svc.FindByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{private.ID}, ids(mine))

	all, err := svc.GetAllPublicEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	got, err := svc.GetEventByID(ctx, private.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, got.OwnerUserID)
}

func TestGetPublicEventByID_Missing(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetPublicEventByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateEvent_ReplacesMutableFields(t *testing.T) {
	svc, rec, now := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.CreateEvent(ctx, Draft{
		Title: "Before", Start: baseTime, OwnerUserID: owner, IsPublic: true,
		Location: "Rabat", Tags: []string{"old"}, Images: []Image{{URL: "a"}},
	})
	require.NoError(t, err)

	*now = baseTime.Add(time.Hour)
	intruder := uuid.New()
	updated, err := svc.UpdateEvent(ctx, created.ID, Draft{
		Title: "After", Start: baseTime.Add(48 * time.Hour), Tags: []string{"NEW"},
		OwnerUserID: intruder,
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, owner, updated.OwnerUserID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, baseTime.Add(time.Hour), updated.UpdatedAt)
	assert.Equal(t, "After", updated.Title)
	assert.Empty(t, updated.Location)
	assert.Empty(t, updated.Images)
	assert.False(t, updated.IsPublic)
	assert.Equal(t, []string{"new"}, []string(updated.Tags))

	assert.Equal(t, []changefeed.Type{changefeed.EventCreated, changefeed.EventUpdated}, rec.types())
}

func TestUpdateEvent_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateEvent(ctx, uuid.New(), draft(uuid.Nil, "t", baseTime, true))
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	created, err := svc.CreateEvent(ctx, draft(uuid.New(), "t", baseTime, true))
	require.NoError(t, err)

	_, err = svc.UpdateEvent(ctx, created.ID, draft(uuid.Nil, "", baseTime, true))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	got, err := svc.GetEventByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}

func TestUpdateEventDates(t *testing.T) {
	svc, _, now := newTestService(t)
	ctx := context.Background()
	end := baseTime.Add(2 * time.Hour)

	created, err := svc.CreateEvent(ctx, Draft{Title: "t", Start: baseTime, End: &end, OwnerUserID: uuid.New(), Location: "kept"})
	require.NoError(t, err)

	_, err = svc.UpdateEventDates(ctx, created.ID, nil, nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.UpdateEventDates(ctx, uuid.New(), &baseTime, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	*now = baseTime.Add(time.Minute)
	newStart := baseTime.Add(72 * time.Hour)
	updated, err := svc.UpdateEventDates(ctx, created.ID, &newStart, nil)
	require.NoError(t, err)

	assert.Equal(t, newStart, updated.Start)
	assert.Nil(t, updated.End)
	assert.Equal(t, "kept", updated.Location)
	assert.Equal(t, baseTime.Add(time.Minute), updated.UpdatedAt)
	assert.Equal(t, baseTime, updated.CreatedAt)
}

func TestDeleteEvent(t *testing.T) {
	svc, rec, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, draft(uuid.New(), "t", baseTime, true))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEvent(ctx, created.ID))

	_, err = svc.GetPublicEventByID(ctx, created.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = svc.DeleteEvent(ctx, created.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	exists, err := svc.EventExists(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Equal(t, []changefeed.Type{changefeed.EventCreated, changefeed.EventDeleted}, rec.types())
}

func TestFindUpcoming(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	now := baseTime

	// created out of order so storage order differs from start order
	e3, _ := svc.CreateEvent(ctx, draft(owner, "T+3", now.Add(3*time.Hour), true))
	e1, _ := svc.CreateEvent(ctx, draft(owner, "T+1", now.Add(1*time.Hour), true))
	e2, _ := svc.CreateEvent(ctx, draft(owner, "T+2", now.Add(2*time.Hour), true))
	_, _ = svc.CreateEvent(ctx, draft(owner, "past", now.Add(-time.Hour), true))
	_, _ = svc.CreateEvent(ctx, draft(owner, "private", now.Add(30*time.Minute), false))
	// starting exactly now is still upcoming
	e0, _ := svc.CreateEvent(ctx, draft(owner, "T+0", now, true))

	got, err := svc.FindUpcoming(ctx, now, 2)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{e0.ID, e1.ID}, ids(got))

	got, err = svc.FindUpcoming(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{e0.ID, e1.ID, e2.ID, e3.ID}, ids(got))

	got, err = svc.FindUpcoming(ctx, now.Add(time.Nanosecond), 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{e1.ID, e2.ID, e3.ID}, ids(got))

	for _, limit := range []int{0, -1} {
		got, err = svc.FindUpcoming(ctx, now, limit)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestFindUpcoming_TiesKeepStorageOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	start := baseTime.Add(time.Hour)

	a, _ := svc.CreateEvent(ctx, draft(uuid.New(), "a", start, true))
	b, _ := svc.CreateEvent(ctx, draft(uuid.New(), "b", start, true))
	c, _ := svc.CreateEvent(ctx, draft(uuid.New(), "c", start, true))

	got, err := svc.FindUpcoming(ctx, baseTime, 3)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, ids(got))

	// the start itself counts as upcoming
	got, err = svc.FindUpcoming(ctx, start, 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, ids(got))
}

func TestFindByTagAndCategory_PublicOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	a, err := svc.CreateEvent(ctx, Draft{Title: "A", Start: baseTime, OwnerUserID: owner, IsPublic: true, Category: "Music", Tags: []string{"Tech", "AI"}})
	require.NoError(t, err)
	_, err = svc.CreateEvent(ctx, Draft{Title: "B", Start: baseTime, OwnerUserID: owner, Category: "music", Tags: []string{"tech"}})
	require.NoError(t, err)

	byTag, err := svc.FindByTag(ctx, "TECH")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, ids(byTag))

	byCategory, err := svc.FindByCategory(ctx, "MUSIC")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, ids(byCategory))

	none, err := svc.FindByCategory(ctx, "mus")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.FindByTag(ctx, "  ")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = svc.FindByCategory(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestFindByOwner_RequiresOwner(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.FindByOwner(context.Background(), uuid.Nil)

	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSearchPublicEvents(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	a, _ := svc.CreateEvent(ctx, Draft{Title: "Jazz Night", Start: baseTime, OwnerUserID: owner, IsPublic: true})
	b, _ := svc.CreateEvent(ctx, Draft{Title: "Talk", Description: "about JAZZ history", Start: baseTime, OwnerUserID: owner, IsPublic: true})
	_, _ = svc.CreateEvent(ctx, Draft{Title: "Jazz private", Start: baseTime, OwnerUserID: owner})
	c, _ := svc.CreateEvent(ctx, Draft{Title: "Run", Location: "Park", Start: baseTime, OwnerUserID: owner, IsPublic: true})

	got, err := svc.SearchPublicEvents(ctx, "jazz")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, ids(got))

	got, err = svc.SearchPublicEvents(ctx, " ")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, ids(got))
}

func TestFindPublicBetween(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	late, _ := svc.CreateEvent(ctx, draft(owner, "late", baseTime.Add(5*time.Hour), true))
	early, _ := svc.CreateEvent(ctx, draft(owner, "early", baseTime.Add(time.Hour), true))
	_, _ = svc.CreateEvent(ctx, draft(owner, "outside", baseTime.Add(10*time.Hour), true))
	_, _ = svc.CreateEvent(ctx, draft(owner, "before", baseTime.Add(-time.Second), true))
	atFrom, _ := svc.CreateEvent(ctx, draft(owner, "at from", baseTime, true))

	// both bounds are inclusive: atFrom sits on from, late sits on to
	got, err := svc.FindPublicBetween(ctx, baseTime, baseTime.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{atFrom.ID, early.ID, late.ID}, ids(got))

	got, err = svc.FindPublicBetween(ctx, baseTime, baseTime)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{atFrom.ID}, ids(got))

	_, err = svc.FindPublicBetween(ctx, baseTime.Add(time.Hour), baseTime)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestDistinctCategoriesAndTags_PublicOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := svc.CreateEvent(ctx, Draft{Title: "A", Start: baseTime, OwnerUserID: owner, IsPublic: true, Category: "Tech", Tags: []string{"Tech", "AI"}})
	require.NoError(t, err)
	_, err = svc.CreateEvent(ctx, Draft{Title: "B", Start: baseTime, OwnerUserID: owner, Category: "Secret", Tags: []string{"hidden"}})
	require.NoError(t, err)
	_, err = svc.CreateEvent(ctx, Draft{Title: "C", Start: baseTime, OwnerUserID: owner, IsPublic: true, Tags: []string{"ai"}})
	require.NoError(t, err)

	tags, err := svc.ListDistinctTags(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tech", "ai"}, tags)

	categories, err := svc.ListDistinctCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tech"}, categories)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, draft(uuid.New(), "t", baseTime, true, "a"))
	require.NoError(t, err)

	got, err := svc.GetEventByID(ctx, created.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	got.Tags[0] = "mutated"

	again, err := svc.GetEventByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", again.Title)
	assert.Equal(t, []string{"a"}, []string(again.Tags))
}
