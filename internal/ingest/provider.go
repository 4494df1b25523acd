// Package ingest runs raw workout input through the pipeline:
// OCR (for images), structural parsing, then movement matching.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/wodocr/internal/matcher"
	"github.com/claude/wodocr/internal/models"
	"github.com/claude/wodocr/internal/wod"
)

// ErrOCRDisabled is returned by ProcessImage when no OCR service is configured.
var ErrOCRDisabled = errors.New("ocr service not configured")

// Catalog supplies the current movement catalog.
type Catalog interface {
	Movements() []models.Movement
}

// Recognizer turns an image into text.
type Recognizer interface {
	Recognize(ctx context.Context, filename string, image []byte) (string, error)
}

// Result holds the outcome of running one workout through the pipeline.
type Result struct {
	Text     string            `json:"text,omitempty"`
	Parsed   models.ParsedWod  `json:"parsed"`
	Matched  *models.ParsedWod `json:"matched,omitempty"`
	Warnings []string          `json:"warnings"`

	Blocks      int `json:"blocks"`
	Movements   int `json:"movements"`
	Unmatched   int `json:"unmatched"`
	CatalogSize int `json:"catalog_size"`
}

// Provider wires the parser and matcher to a catalog and an optional OCR service.
type Provider struct {
	catalog Catalog
	matcher *matcher.Matcher
	ocr     Recognizer
	log     *slog.Logger
}

// NewProvider creates a Provider. ocr may be nil.
func NewProvider(catalog Catalog, m *matcher.Matcher, ocr Recognizer, log *slog.Logger) *Provider {
	return &Provider{catalog: catalog, matcher: m, ocr: ocr, log: log}
}

// Parse structures text without matching it against the catalog.
func (p *Provider) Parse(text string) *Result {
	parsed := wod.Parse(text)
	return &Result{
		Parsed:    parsed,
		Warnings:  []string{},
		Blocks:    len(parsed.Blocks),
		Movements: parsed.MovementCount(),
	}
}

// Process parses text and matches it against the current catalog.
func (p *Provider) Process(text string) *Result {
	start := time.Now()
	result := p.Parse(text)
	p.match(result)

	p.log.Info("wod processed",
		"blocks", result.Blocks,
		"movements", result.Movements,
		"unmatched", result.Unmatched,
		"catalog", result.CatalogSize,
		"duration", time.Since(start).String(),
	)
	return result
}

// Match annotates an already parsed workout, for callers that edited the
// parse result before matching.
func (p *Provider) Match(parsed models.ParsedWod) *Result {
	result := &Result{
		Parsed:    parsed,
		Warnings:  []string{},
		Blocks:    len(parsed.Blocks),
		Movements: parsed.MovementCount(),
	}
	p.match(result)
	return result
}

// ProcessImage runs OCR on image and then Process on the recognised text.
func (p *Provider) ProcessImage(ctx context.Context, filename string, image []byte) (*Result, error) {
	if p.ocr == nil {
		return nil, ErrOCRDisabled
	}
	text, err := p.ocr.Recognize(ctx, filename, image)
	if err != nil {
		return nil, fmt.Errorf("recognizing %s: %w", filename, err)
	}
	p.log.Debug("ocr text received", "file", filename, "chars", len(text))

	result := p.Process(text)
	result.Text = text
	return result, nil
}

// Threshold returns the matcher's confidence threshold.
func (p *Provider) Threshold() float64 {
	return p.matcher.Threshold()
}

// Resolve looks up a single movement name against the current catalog.
func (p *Provider) Resolve(name string) matcher.Resolution {
	return p.matcher.Resolve(name, p.catalog.Movements())
}

func (p *Provider) match(result *Result) {
	catalog := p.catalog.Movements()
	result.CatalogSize = len(catalog)
	if len(catalog) == 0 {
		p.log.Warn("matching against an empty movement catalog")
	}

	res := p.matcher.Match(result.Parsed, catalog)
	result.Matched = &res.Matched
	result.Warnings = append(result.Warnings, res.Warnings...)
	result.Unmatched = res.Unmatched
}
