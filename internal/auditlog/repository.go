package auditlog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/mehdiessalah/eventyBackend/internal/apperror"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	GetByFilter(ctx context.Context, filter AuditLogFilter) ([]AuditLog, int64, error)
	GetByID(ctx context.Context, id uint) (*AuditLog, error)
	// CountByActionStatus counts every matching entry grouped by action and
	// status. Pagination fields of the filter are ignored.
	CountByActionStatus(ctx context.Context, filter AuditLogFilter) ([]ActionStatusCount, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create inserts a new audit log entry
func (r *repository) Create(ctx context.Context, log *AuditLog) error {
	return apperror.Storage("create audit log", r.db.WithContext(ctx).Create(log).Error)
}

// GetByFilter retrieves audit logs with filtering and pagination
func (r *repository) GetByFilter(ctx context.Context, filter AuditLogFilter) ([]AuditLog, int64, error) {
	logs := []AuditLog{}
	var total int64

	query := applyFilter(r.db.WithContext(ctx).Model(&AuditLog{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Storage("count audit logs", err)
	}

	filter.normalize()
	offset := (filter.Page - 1) * filter.Limit
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(filter.Limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, 0, apperror.Storage("find audit logs", err)
	}

	return logs, total, nil
}

// GetByID retrieves a specific audit log by ID
func (r *repository) GetByID(ctx context.Context, id uint) (*AuditLog, error) {
	var log AuditLog
	err := r.db.WithContext(ctx).First(&log, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("audit log", id)
	}
	if err != nil {
		return nil, apperror.Storage("find audit log", err)
	}
	return &log, nil
}

// CountByActionStatus groups in the database so the counts cover every row.
func (r *repository) CountByActionStatus(ctx context.Context, filter AuditLogFilter) ([]ActionStatusCount, error) {
	rows := []ActionStatusCount{}
	err := applyFilter(r.db.WithContext(ctx).Model(&AuditLog{}), filter).
		Select("action, status, COUNT(*) AS count").
		Group("action, status").
		Order("action, status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperror.Storage("count audit logs by action", err)
	}
	return rows, nil
}

func applyFilter(query *gorm.DB, filter AuditLogFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.EventID != nil {
		query = query.Where("event_id = ?", *filter.EventID)
	}
	if filter.Action != "" {
		query = query.Where("action ILIKE ?", "%"+filter.Action+"%")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}
	return query
}

// MemoryRepository backs the memory storage driver.
type MemoryRepository struct {
	mu     sync.RWMutex
	logs   []AuditLog
	nextID uint
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (m *MemoryRepository) Create(_ context.Context, log *AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.ID = m.nextID
	m.nextID++
	m.logs = append(m.logs, *log)
	return nil
}

func (m *MemoryRepository) GetByFilter(_ context.Context, filter AuditLogFilter) ([]AuditLog, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []AuditLog{}
	for _, l := range m.logs {
		if matchesFilter(l, filter) {
			matched = append(matched, l)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	filter.normalize()
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return []AuditLog{}, total, nil
	}
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], total, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uint) (*AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.logs {
		if l.ID == id {
			found := l
			return &found, nil
		}
	}
	return nil, apperror.NotFound("audit log", id)
}

func (m *MemoryRepository) CountByActionStatus(_ context.Context, filter AuditLogFilter) ([]ActionStatusCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type group struct{ action, status string }
	counts := make(map[group]int64)
	for _, l := range m.logs {
		if matchesFilter(l, filter) {
			counts[group{l.Action, l.Status}]++
		}
	}

	rows := make([]ActionStatusCount, 0, len(counts))
	for g, n := range counts {
		rows = append(rows, ActionStatusCount{Action: g.action, Status: g.status, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Action != rows[j].Action {
			return rows[i].Action < rows[j].Action
		}
		return rows[i].Status < rows[j].Status
	})
	return rows, nil
}

func matchesFilter(l AuditLog, f AuditLogFilter) bool {
	if f.UserID != nil && (l.UserID == nil || *l.UserID != *f.UserID) {
		return false
	}
	if f.EventID != nil && (l.EventID == nil || *l.EventID != *f.EventID) {
		return false
	}
	if f.Action != "" && !strings.Contains(strings.ToLower(l.Action), strings.ToLower(f.Action)) {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.FromDate != nil && l.CreatedAt.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && l.CreatedAt.After(*f.ToDate) {
		return false
	}
	return true
}
