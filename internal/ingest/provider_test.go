package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/claude/wodocr/internal/matcher"
	"github.com/claude/wodocr/internal/models"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type staticCatalog []models.Movement

func (c staticCatalog) Movements() []models.Movement { return c }

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) Recognize(context.Context, string, []byte) (string, error) {
	return f.text, f.err
}

var catalog = staticCatalog{
	{ID: 1, Name: "Wall Ball"},
	{ID: 2, Name: "Pull-Up"},
	{ID: 3, Name: "Row"},
}

func newProvider(ocr Recognizer) *Provider {
	return NewProvider(catalog, matcher.New(matcher.DefaultAliases(), matcher.DefaultThreshold), ocr, discard)
}

// TestProcess verifies parse counts and matching on a simple AMRAP.
func TestProcess(t *testing.T) {
	res := newProvider(nil).Process("AMRAP 20 min\n10 Wall Balls\n5 Pull-ups\n3 Zercher Carry")

	if res.Blocks != 1 || res.Movements != 3 {
		t.Errorf("blocks/movements = %d/%d, want 1/3", res.Blocks, res.Movements)
	}
	if res.CatalogSize != 3 {
		t.Errorf("catalog_size = %d, want 3", res.CatalogSize)
	}
	if res.Unmatched != 1 || len(res.Warnings) != 1 {
		t.Errorf("unmatched = %d warnings = %v, want 1 and one warning", res.Unmatched, res.Warnings)
	}
	if res.Matched == nil {
		t.Fatal("matched tree missing")
	}
	mvs := res.Matched.Blocks[0].Scenarios[0].Movements
	if mvs[0].MovementID == nil || *mvs[0].MovementID != 1 {
		t.Errorf("wall balls id = %v, want 1", mvs[0].MovementID)
	}
	if res.Parsed.Blocks[0].Scenarios[0].Movements[0].MovementID != nil {
		t.Error("parsed tree was annotated")
	}
}

// TestParseOnly verifies Parse skips matching.
func TestParseOnly(t *testing.T) {
	res := newProvider(nil).Parse("FOR TIME\nA) 400m Run\nB) 20 Burpees")
	if res.Matched != nil {
		t.Error("parse-only result carries a matched tree")
	}
	if res.Blocks != 1 || res.Movements != 2 {
		t.Errorf("blocks/movements = %d/%d", res.Blocks, res.Movements)
	}
	if res.Warnings == nil {
		t.Error("warnings must be non-nil")
	}
}

// TestMatchEditedTree verifies matching a caller-supplied tree.
func TestMatchEditedTree(t *testing.T) {
	parsed := models.ParsedWod{Blocks: []models.ParsedBlock{{
		ID:        "x",
		BlockType: models.BlockEMOM,
		Scenarios: []models.ParsedScenario{{Code: "A", Movements: []models.ParsedMovement{{NameRaw: "Rowing"}}}},
	}}}
	res := newProvider(nil).Match(parsed)
	if id := res.Matched.Blocks[0].Scenarios[0].Movements[0].MovementID; id == nil || *id != 3 {
		t.Errorf("rowing id = %v, want 3", id)
	}
}

// TestProcessImage verifies OCR text flows into the result.
func TestProcessImage(t *testing.T) {
	res, err := newProvider(fakeOCR{text: "EMOM 10\n12 Cal Row"}).ProcessImage(context.Background(), "board.jpg", []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "EMOM 10\n12 Cal Row" {
		t.Errorf("text = %q", res.Text)
	}
	if res.Parsed.Blocks[0].BlockType != models.BlockEMOM {
		t.Errorf("block_type = %q", res.Parsed.Blocks[0].BlockType)
	}
}

// TestProcessImageErrors covers a missing OCR client and an OCR failure.
func TestProcessImageErrors(t *testing.T) {
	_, err := newProvider(nil).ProcessImage(context.Background(), "a.jpg", []byte("x"))
	if !errors.Is(err, ErrOCRDisabled) {
		t.Errorf("err = %v, want ErrOCRDisabled", err)
	}

	boom := errors.New("boom")
	_, err = newProvider(fakeOCR{err: boom}).ProcessImage(context.Background(), "a.jpg", []byte("x"))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

// TestResolve verifies single-name lookups use the live catalog.
func TestResolve(t *testing.T) {
	r := newProvider(nil).Resolve("pull ups")
	if r.MovementID == nil || *r.MovementID != 2 {
		t.Errorf("resolution = %+v, want id 2", r)
	}
}
