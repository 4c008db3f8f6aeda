package event

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/mehdiessalah/eventyBackend/internal/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the persistence gateway for events.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*Event, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	// Update loads the event, applies mutate and saves it as one atomic unit.
	Update(ctx context.Context, id uuid.UUID, mutate func(*Event) error) (*Event, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	Find(ctx context.Context, f Filter) ([]Event, error)
	DistinctPublicCategories(ctx context.Context) ([]string, error)
	DistinctPublicTags(ctx context.Context) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ===========================
// 🎯 Create Event
func (r *repository) Create(ctx context.Context, e *Event) error {
	return apperror.Storage("create event", r.db.WithContext(ctx).Create(e).Error)
}

// ===========================
// 🔍 Get Event By ID
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var e Event
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("event", id)
	}
	if err != nil {
		return nil, apperror.Storage("find event", err)
	}
	return &e, nil
}

func (r *repository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Event{}).
		Where("id = ?", id).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, apperror.Storage("check event", err)
	}
	return count > 0, nil
}

// ===========================
// 🛠 Update Event (row locked for the read-modify-write)
func (r *repository) Update(ctx context.Context, id uuid.UUID, mutate func(*Event) error) (*Event, error) {
	var e Event
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&e, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("event", id)
		}
		if err != nil {
			return err
		}
		if err := mutate(&e); err != nil {
			return err
		}
		return tx.Save(&e).Error
	})
	if err != nil {
		return nil, apperror.Storage("update event", err)
	}
	return &e, nil
}

// ===========================
// ❌ Delete Event
func (r *repository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Event{})
	if res.Error != nil {
		return apperror.Storage("delete event", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("event", id)
	}
	return nil
}

// ===========================
// 📄 Find events matching a filter
func (r *repository) Find(ctx context.Context, f Filter) ([]Event, error) {
	events := []Event{}

	query := r.db.WithContext(ctx).Model(&Event{})

	if f.PublicOnly {
		query = query.Where("is_public = ?", true)
	}
	if f.OwnerID != uuid.Nil {
		query = query.Where("owner_user_id = ?", f.OwnerID)
	}
	if f.Category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", f.Category)
	}
	if f.Tag != "" {
		query = query.Where("? = ANY(tags)", f.Tag)
	}
	if f.Keyword != "" {
		ilike := "%" + escapeLike(f.Keyword) + "%"
		query = query.Where(`(title ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\' OR location ILIKE ? ESCAPE '\')`, ilike, ilike, ilike)
	}
	if f.StartFrom != nil {
		query = query.Where("start_at >= ?", *f.StartFrom)
	}
	if f.StartTo != nil {
		query = query.Where("start_at <= ?", *f.StartTo)
	}

	if f.OrderByStart {
		query = query.Order("start_at ASC")
	}
	query = query.Order("created_at ASC").Order("id ASC")

	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	if err := query.Find(&events).Error; err != nil {
		return nil, apperror.Storage("find events", err)
	}
	return events, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes the keyword match literally, the way the memory store
// matches it.
func escapeLike(keyword string) string {
	return likeEscaper.Replace(keyword)
}

// ===========================
// 📊 Distinct values across public events
func (r *repository) DistinctPublicCategories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT category
		FROM events
		WHERE is_public = TRUE AND category IS NOT NULL AND category <> ''
		ORDER BY category
	`).Scan(&categories).Error
	if err != nil {
		return nil, apperror.Storage("distinct categories", err)
	}
	return categories, nil
}

func (r *repository) DistinctPublicTags(ctx context.Context) ([]string, error) {
	tags := []string{}
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT tag
		FROM events, unnest(tags) AS tag
		WHERE is_public = TRUE
		ORDER BY tag
	`).Scan(&tags).Error
	if err != nil {
		return nil, apperror.Storage("distinct tags", err)
	}
	return tags, nil
}
