package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/claude/wodocr/internal/models"
	"github.com/google/go-cmp/cmp"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var sampleMovements = []models.Movement{
	{ID: 3, Name: "Wall Ball", Category: "conditioning"},
	{ID: 1, Name: "Back Squat", Category: "weightlifting"},
	{ID: 2, Name: "Row"},
}

// failingSource always fails.
type failingSource struct{}

func (failingSource) Name() string { return "broken" }

func (failingSource) Fetch(context.Context) ([]models.Movement, error) {
	return nil, errors.New("backend unreachable")
}

// TestFileSourceRoundTrip verifies WriteFile output is read back by FileSource.
func TestFileSourceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "movements.toml")
	if err := WriteFile(path, sampleMovements); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := FileSource{Path: path}.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if diff := cmp.Diff(sampleMovements, got); diff != "" {
		t.Errorf("movements mismatch (-want +got):\n%s", diff)
	}
}

// TestFileSourceErrors covers unknown keys, nameless entries and missing files.
func TestFileSourceErrors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"unknown key": "[[movement]]\nid = 1\nname = \"Row\"\naliases = [\"remo\"]\n",
		"no name":     "[[movement]]\nid = 1\n",
		"empty":       "",
	}
	for name, content := range tests {
		path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".toml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := (FileSource{Path: path}).Fetch(context.Background()); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	if _, err := (FileSource{Path: filepath.Join(dir, "missing.toml")}).Fetch(context.Background()); err == nil {
		t.Error("missing file: expected error")
	}
}

// TestCacheSaveLoad verifies a snapshot survives a round trip with order preserved.
func TestCacheSaveLoad(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenCache(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if _, err := cache.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("empty cache err = %v, want ErrNoSnapshot", err)
	}

	snap := models.CatalogSnapshot{
		Movements: sampleMovements,
		FetchedAt: time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC),
		Source:    "api",
	}
	if err := cache.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	// A second save replaces the first.
	snap.Movements = sampleMovements[:2]
	if err := cache.Save(ctx, snap); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

// TestCacheReopen verifies migrations are idempotent and data persists across opens.
func TestCacheReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cache, err := OpenCache(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := cache.Save(ctx, models.CatalogSnapshot{Movements: sampleMovements, FetchedAt: time.Now(), Source: "file"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	cache.Close()

	cache, err = OpenCache(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer cache.Close()
	got, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Movements) != len(sampleMovements) || got.Source != "file" {
		t.Errorf("got %d movements from %q", len(got.Movements), got.Source)
	}
}

// TestStoreRefresh verifies a successful refresh replaces the snapshot and fills the cache.
func TestStoreRefresh(t *testing.T) {
	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer cache.Close()

	store := NewStore(StaticSource(sampleMovements), cache, discard)
	if store.Len() != 0 {
		t.Fatalf("new store len = %d, want 0", store.Len())
	}

	snap, err := store.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snap.Source != "static" || len(snap.Movements) != 3 {
		t.Errorf("snapshot = %s/%d", snap.Source, len(snap.Movements))
	}

	cached, err := cache.Load(context.Background())
	if err != nil {
		t.Fatalf("cache load: %v", err)
	}
	if diff := cmp.Diff(store.Movements(), cached.Movements); diff != "" {
		t.Errorf("cache mismatch (-store +cache):\n%s", diff)
	}
}

// TestStoreFallsBackToCache verifies a failed refresh on an empty store
// restores the cached snapshot and still reports the error.
func TestStoreFallsBackToCache(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cache, err := OpenCache(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer cache.Close()
	if err := cache.Save(ctx, models.CatalogSnapshot{Movements: sampleMovements, FetchedAt: time.Now(), Source: "api"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	store := NewStore(failingSource{}, cache, discard)
	snap, err := store.Refresh(ctx)
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("err = %v, want refresh error naming the source", err)
	}
	if len(snap.Movements) != 3 || snap.Source != "api" {
		t.Errorf("snapshot = %s/%d, want cached api/3", snap.Source, len(snap.Movements))
	}
}

// TestStoreKeepsPreviousOnFailure verifies a failed refresh does not wipe a good snapshot.
func TestStoreKeepsPreviousOnFailure(t *testing.T) {
	store := NewStore(StaticSource(sampleMovements), nil, discard)
	if _, err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	store.source = failingSource{}
	if _, err := store.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if store.Len() != 3 {
		t.Errorf("len = %d, want previous 3", store.Len())
	}
}

// TestStoreSnapshotIsCopy verifies callers cannot modify the stored catalog.
func TestStoreSnapshotIsCopy(t *testing.T) {
	store := NewStore(StaticSource(sampleMovements), nil, discard)
	if _, err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	mv := store.Movements()
	mv[0].Name = "Changed"
	if store.Movements()[0].Name != "Wall Ball" {
		t.Error("store mutated through returned slice")
	}
}

// TestNewRefresherSchedule verifies schedule validation.
func TestNewRefresherSchedule(t *testing.T) {
	store := NewStore(StaticSource(sampleMovements), nil, discard)

	if _, err := NewRefresher(store, "", discard); err == nil {
		t.Error("expected error for empty schedule")
	}
	if _, err := NewRefresher(store, "every now and then", discard); err == nil {
		t.Error("expected error for bad schedule")
	}
	r, err := NewRefresher(store, "@every 1h", discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Start()
	r.Stop()
}

// TestRefresherRun verifies a scheduled run refreshes the store.
func TestRefresherRun(t *testing.T) {
	store := NewStore(StaticSource(sampleMovements), nil, discard)
	r, err := NewRefresher(store, "@every 1h", discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.run()
	if store.Len() != 3 {
		t.Errorf("len = %d, want 3", store.Len())
	}
}
