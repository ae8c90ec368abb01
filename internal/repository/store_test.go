package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rpattn/maintops/internal/domain"
)

func TestNotFound_MapsNoRows(t *testing.T) {
	err := fmt.Errorf("failed to get work order: %w", notFound(pgx.ErrNoRows))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	other := errors.New("connection reset")
	if got := notFound(other); got != other {
		t.Fatalf("expected unrelated errors to pass through, got %v", got)
	}
}

func TestRequireAffected(t *testing.T) {
	if err := requireAffected(0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for zero rows, got %v", err)
	}
	if err := requireAffected(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCatalogTable_RejectsUnknownKinds(t *testing.T) {
	table, err := catalogTable(domain.CatalogShelters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table != `"shelters"` {
		t.Fatalf("expected quoted identifier, got %s", table)
	}

	if _, err := catalogTable(domain.CatalogKind("equipos; DROP TABLE equipos")); err == nil {
		t.Fatalf("expected error for unknown catalog")
	}
}

func TestNullableConversions_RoundTrip(t *testing.T) {
	if value := toPgUUID(nil); value.Valid {
		t.Fatalf("nil id should map to NULL")
	}
	id := uuid.New()
	if got := fromPgUUID(toPgUUID(&id)); got == nil || *got != id {
		t.Fatalf("expected %s, got %v", id, got)
	}

	var zero time.Time
	if value := toPgTimestamptz(&zero); value.Valid {
		t.Fatalf("zero time should map to NULL")
	}

	years := 12
	if got := fromPgInt4(toPgInt4(&years)); got == nil || *got != 12 {
		t.Fatalf("expected 12, got %v", got)
	}
}

func TestNormalizePage(t *testing.T) {
	limit, offset := normalizePage(0, -5, 100)
	if limit != 100 || offset != 0 {
		t.Fatalf("expected defaults (100, 0), got (%d, %d)", limit, offset)
	}
	limit, offset = normalizePage(25, 50, 100)
	if limit != 25 || offset != 50 {
		t.Fatalf("expected (25, 50), got (%d, %d)", limit, offset)
	}
}
