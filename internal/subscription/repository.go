package subscription

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mehdiessalah/eventyBackend/internal/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the persistence gateway for memberships.
type Repository interface {
	// Insert stores s unless the pair already exists. created reports
	// whether a row was written; a duplicate is not an error.
	Insert(ctx context.Context, s *Subscription) (created bool, err error)
	// Delete removes the pair if present. removed reports whether a row
	// went away; an absent pair is not an error.
	Delete(ctx context.Context, userID, eventID uuid.UUID) (removed bool, err error)
	Exists(ctx context.Context, userID, eventID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Subscription, error)
	CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ===========================
// ➕ Insert, tolerating a concurrent duplicate
func (r *repository) Insert(ctx context.Context, s *Subscription) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(s)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, nil
		}
		return false, apperror.Storage("insert subscription", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ===========================
// ➖ Delete by composite key
func (r *repository) Delete(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Delete(&Subscription{})
	if res.Error != nil {
		return false, apperror.Storage("delete subscription", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Exists(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Count(&count).Error
	if err != nil {
		return false, apperror.Storage("check subscription", err)
	}
	return count > 0, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Subscription, error) {
	subs := []Subscription{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("subscribed_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, apperror.Storage("list subscriptions", err)
	}
	return subs, nil
}

func (r *repository) CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	if err != nil {
		return 0, apperror.Storage("count subscribers", err)
	}
	return count, nil
}

// isUniqueViolation recognizes a duplicate key whether gorm translated it
// or the raw pgx error came through.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
