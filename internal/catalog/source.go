// Package catalog provides the movement catalog the matcher resolves against.
// The catalog is owned by the workout backend; this package only fetches it,
// keeps the latest snapshot in memory and persists it locally so matching
// keeps working while the backend is unreachable.
package catalog

import (
	"context"
	"errors"

	"github.com/claude/wodocr/internal/models"
)

var (
	// ErrEmptyCatalog is returned when a source answers with no movements.
	ErrEmptyCatalog = errors.New("catalog source returned no movements")

	// ErrNoSnapshot is returned by the cache before anything has been saved.
	ErrNoSnapshot = errors.New("no cached catalog snapshot")
)

// Source fetches the full movement catalog.
type Source interface {
	// Name identifies the source in logs and snapshots.
	Name() string
	Fetch(ctx context.Context) ([]models.Movement, error)
}

// StaticSource serves a fixed list. Useful for tests and for callers that
// already hold the catalog.
type StaticSource []models.Movement

func (s StaticSource) Name() string { return "static" }

func (s StaticSource) Fetch(context.Context) ([]models.Movement, error) {
	if len(s) == 0 {
		return nil, ErrEmptyCatalog
	}
	out := make([]models.Movement, len(s))
	copy(out, s)
	return out, nil
}
