package catalog

import (
	"context"
	"fmt"

	"github.com/claude/wodocr/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads the catalog straight from the backend database.
// It only ever reads; the backend owns the schema.
type PostgresSource struct {
	Pool *pgxpool.Pool
}

// NewPostgresSource creates a connection pool. Connections are opened on
// the first Fetch, so an unreachable database only fails refreshes.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	return &PostgresSource{Pool: pool}, nil
}

func (s *PostgresSource) Name() string { return "postgres" }

// Fetch returns all movements ordered by id.
func (s *PostgresSource) Fetch(ctx context.Context) ([]models.Movement, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, name, COALESCE(category, '') FROM movements ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying movements: %w", err)
	}
	defer rows.Close()

	var result []models.Movement
	for rows.Next() {
		var m models.Movement
		if err := rows.Scan(&m.ID, &m.Name, &m.Category); err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading movements: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrEmptyCatalog
	}
	return result, nil
}

// Close closes the connection pool.
func (s *PostgresSource) Close() {
	s.Pool.Close()
}
