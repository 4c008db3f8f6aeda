package auditlog

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Service interface {
	LogAction(ctx context.Context, userID *uuid.UUID, eventID *uuid.UUID, action string, details map[string]interface{}, ip string, status string) error
	GetAuditLogs(ctx context.Context, filter AuditLogFilter) (*PaginatedAuditLogs, error)
	GetAuditLogByID(ctx context.Context, id uint) (*AuditLog, error)
	GetAuditLogStats(ctx context.Context, userID uuid.UUID) (*AuditLogStats, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

// LogAction creates a new audit log entry
func (s *service) LogAction(ctx context.Context, userID *uuid.UUID, eventID *uuid.UUID, action string, details map[string]interface{}, ip string, status string) error {
	if details == nil {
		details = make(map[string]interface{})
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	return s.repo.Create(ctx, &AuditLog{
		UserID:    userID,
		EventID:   eventID,
		Action:    action,
		Details:   datatypes.JSON(detailsJSON),
		IPAddress: ip,
		Status:    status,
		CreatedAt: s.now().UTC(),
	})
}

// GetAuditLogs retrieves paginated audit logs with filters
func (s *service) GetAuditLogs(ctx context.Context, filter AuditLogFilter) (*PaginatedAuditLogs, error) {
	filter.normalize()

	logs, total, err := s.repo.GetByFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &PaginatedAuditLogs{
		Data:       logs,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *service) GetAuditLogByID(ctx context.Context, id uint) (*AuditLog, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAuditLogStats counts the user's entries of the last 7 days.
func (s *service) GetAuditLogStats(ctx context.Context, userID uuid.UUID) (*AuditLogStats, error) {
	now := s.now().UTC()
	lastWeek := now.AddDate(0, 0, -7)

	rows, err := s.repo.CountByActionStatus(ctx, AuditLogFilter{
		UserID:   &userID,
		FromDate: &lastWeek,
		ToDate:   &now,
	})
	if err != nil {
		return nil, err
	}

	stats := &AuditLogStats{ActionBreakdown: make(map[string]int64)}
	for _, row := range rows {
		stats.TotalLast7Days += row.Count
		if row.Status == StatusSuccess {
			stats.SuccessCount += row.Count
		} else {
			stats.FailureCount += row.Count
		}
		stats.ActionBreakdown[row.Action] += row.Count
	}
	return stats, nil
}
