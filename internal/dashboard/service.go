package dashboard

import (
	"context"
	"log/slog"

	"github.com/mehdiessalah/eventyBackend/internal/event"
	"github.com/mehdiessalah/eventyBackend/monitoring"
)

// Catalog is the read side of the event catalog the dashboard composes.
type Catalog interface {
	GetAllPublicEvents(ctx context.Context) ([]event.Event, error)
	ListDistinctCategories(ctx context.Context) ([]string, error)
	ListDistinctTags(ctx context.Context) ([]string, error)
}

// Service is read-only. With a nil Cache every call goes to the catalog.
type Service struct {
	Catalog Catalog
	Cache   *Cache
}

func NewService(catalog Catalog, cache *Cache) *Service {
	return &Service{Catalog: catalog, Cache: cache}
}

func (s *Service) ListPublicEvents(ctx context.Context) ([]event.Event, error) {
	return readThrough(ctx, s.Cache, KeyEvents, "events", s.Catalog.GetAllPublicEvents)
}

// ListDistinctCategories returns the non-empty categories of public events.
func (s *Service) ListDistinctCategories(ctx context.Context) ([]string, error) {
	return readThrough(ctx, s.Cache, KeyCategories, "categories", s.Catalog.ListDistinctCategories)
}

// ListDistinctTags returns every tag of public events, flattened and
// deduplicated.
func (s *Service) ListDistinctTags(ctx context.Context) ([]string, error) {
	return readThrough(ctx, s.Cache, KeyTags, "tags", s.Catalog.ListDistinctTags)
}

// readThrough serves key from the cache and fills it on a miss. Cache
// errors are logged and the catalog answers instead.
func readThrough[T any](ctx context.Context, cache *Cache, key, list string, load func(context.Context) (T, error)) (T, error) {
	if cache == nil {
		return load(ctx)
	}

	// The generation is read before the catalog so a change committed
	// during the load makes this fill unreachable.
	gen, err := cache.generation(ctx)
	if err != nil {
		monitoring.TrackCacheLookup(list, "error")
		slog.WarnContext(ctx, "dashboard cache generation read failed", "key", KeyGeneration, "error", err)
		return load(ctx)
	}
	key = versionedKey(key, gen)

	var cached T
	hit, err := cache.get(ctx, key, &cached)
	switch {
	case err != nil:
		monitoring.TrackCacheLookup(list, "error")
		slog.WarnContext(ctx, "dashboard cache read failed", "key", key, "error", err)
	case hit:
		monitoring.TrackCacheLookup(list, "hit")
		return cached, nil
	default:
		monitoring.TrackCacheLookup(list, "miss")
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := cache.set(ctx, key, value); err != nil {
		slog.WarnContext(ctx, "dashboard cache write failed", "key", key, "error", err)
	}
	return value, nil
}
