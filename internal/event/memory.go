package event

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mehdiessalah/eventyBackend/internal/apperror"
	"gorm.io/datatypes"
)

// MemoryRepository keeps events in process memory. Every call is atomic
// under one lock and callers only ever see copies.
type MemoryRepository struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*Event
	order  []uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: make(map[uuid.UUID]*Event)}
}

func (m *MemoryRepository) Create(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[e.ID]; ok {
		return apperror.Storage("create event", fmt.Errorf("duplicate id %s", e.ID))
	}
	m.events[e.ID] = clone(e)
	m.order = append(m.order, e.ID)
	return nil
}

func (m *MemoryRepository) FindByID(_ context.Context, id uuid.UUID) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return nil, apperror.NotFound("event", id)
	}
	return clone(e), nil
}

func (m *MemoryRepository) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.events[id]
	return ok, nil
}

func (m *MemoryRepository) Update(_ context.Context, id uuid.UUID, mutate func(*Event) error) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.events[id]
	if !ok {
		return nil, apperror.NotFound("event", id)
	}
	next := clone(current)
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	m.events[id] = next
	return clone(next), nil
}

func (m *MemoryRepository) DeleteByID(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return apperror.NotFound("event", id)
	}
	delete(m.events, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryRepository) Find(_ context.Context, f Filter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := []Event{}
	for _, id := range m.order {
		e := m.events[id]
		if matches(e, f) {
			events = append(events, *clone(e))
		}
	}

	if f.OrderByStart {
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Start.Before(events[j].Start)
		})
	}
	if f.Limit > 0 && len(events) > f.Limit {
		events = events[:f.Limit]
	}
	return events, nil
}

func (m *MemoryRepository) DistinctPublicCategories(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(map[string]struct{})
	for _, e := range m.events {
		if e.IsPublic && e.Category != "" {
			set[e.Category] = struct{}{}
		}
	}
	return sortedKeys(set), nil
}

func (m *MemoryRepository) DistinctPublicTags(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(map[string]struct{})
	for _, e := range m.events {
		if !e.IsPublic {
			continue
		}
		for _, t := range e.Tags {
			set[t] = struct{}{}
		}
	}
	return sortedKeys(set), nil
}

func matches(e *Event, f Filter) bool {
	if f.PublicOnly && !e.IsPublic {
		return false
	}
	if f.OwnerID != uuid.Nil && e.OwnerUserID != f.OwnerID {
		return false
	}
	if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
		return false
	}
	if f.Tag != "" && !containsTag(e.Tags, f.Tag) {
		return false
	}
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(e.Title), kw) &&
			!strings.Contains(strings.ToLower(e.Description), kw) &&
			!strings.Contains(strings.ToLower(e.Location), kw) {
			return false
		}
	}
	if f.StartFrom != nil && e.Start.Before(*f.StartFrom) {
		return false
	}
	if f.StartTo != nil && e.Start.After(*f.StartTo) {
		return false
	}
	return true
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func clone(e *Event) *Event {
	c := *e
	if e.End != nil {
		end := *e.End
		c.End = &end
	}
	if e.Images != nil {
		c.Images = append(datatypes.JSONSlice[Image]{}, e.Images...)
	}
	if e.Tags != nil {
		c.Tags = append(pq.StringArray{}, e.Tags...)
	}
	return &c
}
