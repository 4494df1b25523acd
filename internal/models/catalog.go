package models

import "time"

// Movement is a catalog entry owned by the workout backend.
type Movement struct {
	ID       int64  `json:"id" toml:"id"`
	Name     string `json:"name" toml:"name"`
	Category string `json:"category,omitempty" toml:"category"`
}

// CatalogSnapshot is the catalog as last fetched, with its provenance.
type CatalogSnapshot struct {
	Movements []Movement `json:"movements"`
	FetchedAt time.Time  `json:"fetched_at"`
	Source    string     `json:"source"`
}

//
// For TOML catalog files only
//

// CatalogFile is the on-disk TOML layout of an offline movement catalog.
type CatalogFile struct {
	Movements []Movement `toml:"movement"`
}
