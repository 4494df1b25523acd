package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/claude/wodocr/internal/models"
)

// FileSource reads the catalog from a TOML file of [[movement]] tables:
//
//	[[movement]]
//	id = 1
//	name = "Back Squat"
//	category = "weightlifting"
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file" }

// Fetch decodes the file on every call so edits are picked up on refresh.
func (s FileSource) Fetch(context.Context) ([]models.Movement, error) {
	var f models.CatalogFile
	md, err := toml.DecodeFile(s.Path, &f)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file %s: %w", s.Path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("catalog file %s: unknown keys %v", s.Path, undecoded)
	}
	for i, m := range f.Movements {
		if m.Name == "" {
			return nil, fmt.Errorf("catalog file %s: movement %d has no name", s.Path, i+1)
		}
	}
	if len(f.Movements) == 0 {
		return nil, ErrEmptyCatalog
	}
	return f.Movements, nil
}

// WriteFile writes movements to path in the format FileSource reads.
func WriteFile(path string, movements []models.Movement) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating catalog dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating catalog file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(models.CatalogFile{Movements: movements}); err != nil {
		return fmt.Errorf("encoding catalog file: %w", err)
	}
	return f.Close()
}
