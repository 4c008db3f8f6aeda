package subscription

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keys memberships by the (user, event) tuple, so the
// uniqueness check and the insert happen under one lock.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[key]Subscription
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[key]Subscription)}
}

func (m *MemoryRepository) Insert(_ context.Context, s *Subscription) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyOf(s)
	if _, ok := m.rows[k]; ok {
		return false, nil
	}
	m.rows[k] = *s
	return true, nil
}

func (m *MemoryRepository) Delete(_ context.Context, userID, eventID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{userID: userID, eventID: eventID}
	if _, ok := m.rows[k]; !ok {
		return false, nil
	}
	delete(m.rows, k)
	return true, nil
}

func (m *MemoryRepository) Exists(_ context.Context, userID, eventID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.rows[key{userID: userID, eventID: eventID}]
	return ok, nil
}

func (m *MemoryRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := []Subscription{}
	for k, s := range m.rows {
		if k.userID == userID {
			subs = append(subs, s)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].SubscribedAt.Equal(subs[j].SubscribedAt) {
			return subs[i].SubscribedAt.Before(subs[j].SubscribedAt)
		}
		return subs[i].EventID.String() < subs[j].EventID.String()
	})
	return subs, nil
}

func (m *MemoryRepository) CountByEvent(_ context.Context, eventID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for k := range m.rows {
		if k.eventID == eventID {
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored memberships.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
