package auditlog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionEventCreated      = "EVENT_CREATED"
	ActionEventUpdated      = "EVENT_UPDATED"
	ActionEventDatesUpdated = "EVENT_DATES_UPDATED"
	ActionEventDeleted      = "EVENT_DELETED"
	ActionSubscribed        = "EVENT_SUBSCRIBED"
	ActionUnsubscribed      = "EVENT_UNSUBSCRIBED"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

// AuditLog represents the audit_logs table
type AuditLog struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"`  // nullable (anonymous caller)
	EventID   *uuid.UUID     `gorm:"type:uuid;index" json:"event_id"` // nullable (failed create)
	Action    string         `gorm:"size:100;not null;index" json:"action"`
	Details   datatypes.JSON `gorm:"type:jsonb" json:"details"`
	IPAddress string         `gorm:"size:45" json:"ip_address"`
	Status    string         `gorm:"size:20;not null;index" json:"status"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName overrides table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditLogFilter represents filters for querying audit logs
type AuditLogFilter struct {
	UserID   *uuid.UUID `json:"user_id"`
	EventID  *uuid.UUID `json:"event_id"`
	Action   string     `json:"action"`
	Status   string     `json:"status"`
	FromDate *time.Time `json:"from_date"`
	ToDate   *time.Time `json:"to_date"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}

func (f *AuditLogFilter) normalize() {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
}

// PaginatedAuditLogs represents paginated audit log response
type PaginatedAuditLogs struct {
	Data       []AuditLog `json:"data"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
}

// ActionStatusCount is one row of the grouped stats query.
type ActionStatusCount struct {
	Action string `json:"action"`
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// AuditLogStats summarises a caller's entries over a time window.
type AuditLogStats struct {
	TotalLast7Days  int64            `json:"total_last_7_days"`
	SuccessCount    int64            `json:"success_count"`
	FailureCount    int64            `json:"failure_count"`
	ActionBreakdown map[string]int64 `json:"action_breakdown"`
}
