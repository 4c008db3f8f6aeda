package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is one user's membership of one event. The pair is the
// primary key, so the table holds at most one row per (user, event).
type Subscription struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	EventID      uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"event_id"`
	SubscribedAt time.Time `gorm:"autoCreateTime:false;not null" json:"subscribed_at"`
}

// TableName overrides table name for Subscription
func (Subscription) TableName() string {
	return "user_subscriptions"
}

// key is the composite identity used by the memory store.
type key struct {
	userID  uuid.UUID
	eventID uuid.UUID
}

func keyOf(s *Subscription) key {
	return key{userID: s.UserID, eventID: s.EventID}
}

// SubscriptionsResponse is returned by GET /dashboard/subscriptions.
type SubscriptionsResponse struct {
	EventIDs []uuid.UUID `json:"event_ids"`
}

// StatusResponse reports the membership state after a (un)subscribe call.
type StatusResponse struct {
	EventID    uuid.UUID `json:"event_id"`
	Subscribed bool      `json:"subscribed"`
}
