package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/wodocr/internal/models"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Cache persists the last good catalog snapshot in a local SQLite database.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the cache database at dir/catalog.db and
// applies its migrations.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "catalog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading cache migrations: %w", err)
	}
	drv, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	// m.Close would also close db, which the cache keeps using.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running cache migrations: %w", err)
	}
	return nil
}

// Save replaces the cached snapshot.
func (c *Cache) Save(ctx context.Context, snap models.CatalogSnapshot) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM movements`); err != nil {
		return fmt.Errorf("clearing cached movements: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO movements (position, id, name, category) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing movement insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range snap.Movements {
		if _, err := stmt.ExecContext(ctx, i, m.ID, m.Name, m.Category); err != nil {
			return fmt.Errorf("caching movement %d: %w", m.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshot (singleton, source, fetched_at, movements) VALUES (1, ?, ?, ?)`,
		snap.Source, snap.FetchedAt.UTC().Format(time.RFC3339Nano), len(snap.Movements),
	)
	if err != nil {
		return fmt.Errorf("recording snapshot: %w", err)
	}
	return tx.Commit()
}

// Load returns the cached snapshot, or ErrNoSnapshot if none was saved.
func (c *Cache) Load(ctx context.Context) (models.CatalogSnapshot, error) {
	var snap models.CatalogSnapshot
	var fetchedAt string
	var count int
	err := c.db.QueryRowContext(ctx,
		`SELECT source, fetched_at, movements FROM snapshot WHERE singleton = 1`,
	).Scan(&snap.Source, &fetchedAt, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrNoSnapshot
	}
	if err != nil {
		return snap, fmt.Errorf("reading snapshot: %w", err)
	}
	if snap.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt); err != nil {
		return snap, fmt.Errorf("parsing snapshot time: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, category FROM movements ORDER BY position`)
	if err != nil {
		return snap, fmt.Errorf("querying cached movements: %w", err)
	}
	defer rows.Close()

	snap.Movements = make([]models.Movement, 0, count)
	for rows.Next() {
		var m models.Movement
		if err := rows.Scan(&m.ID, &m.Name, &m.Category); err != nil {
			return snap, fmt.Errorf("scanning cached movement: %w", err)
		}
		snap.Movements = append(snap.Movements, m)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}
	if len(snap.Movements) != count {
		return snap, fmt.Errorf("cached snapshot is incomplete: %d of %d movements", len(snap.Movements), count)
	}
	return snap, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}
