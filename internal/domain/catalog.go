package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CatalogKind names a small reference table.
type CatalogKind string

const (
	CatalogSegments   CatalogKind = "tramos"
	CatalogDirections CatalogKind = "sentidos"
	CatalogMilestones CatalogKind = "pks"
	CatalogShelters   CatalogKind = "shelters"
	CatalogGantries   CatalogKind = "porticos"
	CatalogBrands     CatalogKind = "marcas"
	CatalogModels     CatalogKind = "modelos"
)

// CatalogKinds lists every catalog table.
var CatalogKinds = []CatalogKind{
	CatalogSegments,
	CatalogDirections,
	CatalogMilestones,
	CatalogShelters,
	CatalogGantries,
	CatalogBrands,
	CatalogModels,
}

// ParseCatalogKind validates a catalog name.
func ParseCatalogKind(raw string) (CatalogKind, error) {
	folded := CatalogKind(FoldLabel(raw))
	for _, kind := range CatalogKinds {
		if folded == kind {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: unknown catalog %q", ErrValidation, raw)
}

// CatalogEntry is one row of a reference table.
type CatalogEntry struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

// Catalog indexes entries by folded code and name for reference lookups.
type Catalog struct {
	Kind    CatalogKind
	entries map[string]CatalogEntry
}

// NewCatalog builds a lookup index over entries.
func NewCatalog(kind CatalogKind, entries []CatalogEntry) Catalog {
	index := make(map[string]CatalogEntry, len(entries)*2)
	for _, entry := range entries {
		if code := FoldLabel(entry.Code); code != "" {
			index[code] = entry
		}
		if name := FoldLabel(entry.Name); name != "" {
			if _, taken := index[name]; !taken {
				index[name] = entry
			}
		}
	}
	return Catalog{Kind: kind, entries: index}
}

// Resolve finds the entry whose code or name matches value case-insensitively.
func (c Catalog) Resolve(value string) (CatalogEntry, bool) {
	key := FoldLabel(value)
	if key == "" {
		return CatalogEntry{}, false
	}
	entry, ok := c.entries[key]
	return entry, ok
}

// Len reports how many keys the catalog indexes.
func (c Catalog) Len() int {
	return len(c.entries)
}

// Label renders the entry for exports.
func (e CatalogEntry) Label() string {
	if strings.TrimSpace(e.Name) != "" {
		return e.Name
	}
	return e.Code
}
