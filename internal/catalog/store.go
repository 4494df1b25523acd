package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/wodocr/internal/models"
)

// Store holds the current catalog snapshot. Readers get copies; Refresh swaps
// the snapshot atomically.
type Store struct {
	source Source
	cache  *Cache
	log    *slog.Logger
	now    func() time.Time

	mu   sync.RWMutex
	snap models.CatalogSnapshot
}

// NewStore creates a Store. cache may be nil, in which case nothing is
// persisted and a failed first refresh leaves the catalog empty.
func NewStore(source Source, cache *Cache, log *slog.Logger) *Store {
	return &Store{
		source: source,
		cache:  cache,
		log:    log,
		now:    time.Now,
		snap:   models.CatalogSnapshot{Movements: []models.Movement{}},
	}
}

// Restore loads the cached snapshot into memory without contacting the
// source. It is a no-op when there is no cache or nothing cached.
func (s *Store) Restore(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	snap, err := s.cache.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restoring catalog: %w", err)
	}
	s.set(snap)
	s.log.Info("catalog restored from cache",
		"movements", len(snap.Movements),
		"source", snap.Source,
		"fetched_at", snap.FetchedAt,
	)
	return nil
}

// Refresh fetches the catalog from the source and replaces the snapshot.
// On failure the previous snapshot is kept; if there is none, the cached one
// is restored. The fetch error is returned either way.
func (s *Store) Refresh(ctx context.Context) (models.CatalogSnapshot, error) {
	start := s.now()
	movements, err := s.source.Fetch(ctx)
	if err != nil {
		if s.Len() == 0 {
			if rerr := s.Restore(ctx); rerr != nil {
				s.log.Warn("catalog cache restore failed", "error", rerr)
			}
		}
		return s.Snapshot(), fmt.Errorf("refreshing catalog from %s: %w", s.source.Name(), err)
	}

	snap := models.CatalogSnapshot{
		Movements: movements,
		FetchedAt: start,
		Source:    s.source.Name(),
	}
	s.set(snap)

	if s.cache != nil {
		if err := s.cache.Save(ctx, snap); err != nil {
			s.log.Warn("catalog cache save failed", "error", err)
		}
	}

	s.log.Info("catalog refreshed",
		"source", snap.Source,
		"movements", len(movements),
		"duration", s.now().Sub(start).String(),
	)
	return s.Snapshot(), nil
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() models.CatalogSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Movements = make([]models.Movement, len(s.snap.Movements))
	copy(out.Movements, s.snap.Movements)
	return out
}

// Movements returns a copy of the current catalog.
func (s *Store) Movements() []models.Movement {
	return s.Snapshot().Movements
}

// Len returns the number of movements in the current snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snap.Movements)
}

func (s *Store) set(snap models.CatalogSnapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}
