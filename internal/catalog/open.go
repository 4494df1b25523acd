package catalog

import (
	"context"
	"fmt"

	"github.com/claude/wodocr/internal/config"
)

// Open builds the Source selected by cfg. The returned close func releases
// any connections and is never nil.
func Open(ctx context.Context, cfg config.CatalogConfig) (Source, func(), error) {
	switch cfg.Source {
	case config.SourceAPI:
		return NewHTTPSource(cfg.APIURL, cfg.APIToken), func() {}, nil
	case config.SourcePostgres:
		pg, err := NewPostgresSource(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, func() {}, err
		}
		return pg, pg.Close, nil
	case config.SourceFile:
		return FileSource{Path: cfg.File}, func() {}, nil
	}
	return nil, func() {}, fmt.Errorf("unknown catalog source %q", cfg.Source)
}
