package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestCatalogResolveByCodeOrName(t *testing.T) {
	north := CatalogEntry{ID: uuid.New(), Code: "T1", Name: "Tramo Norte"}
	south := CatalogEntry{ID: uuid.New(), Code: "T2", Name: "Tramo Sur"}
	catalog := NewCatalog(CatalogSegments, []CatalogEntry{north, south})

	if entry, ok := catalog.Resolve("t1"); !ok || entry.ID != north.ID {
		t.Fatalf("expected code lookup to resolve north, got %+v %v", entry, ok)
	}
	if entry, ok := catalog.Resolve("TRAMO SUR"); !ok || entry.ID != south.ID {
		t.Fatalf("expected name lookup to resolve south, got %+v %v", entry, ok)
	}
	if _, ok := catalog.Resolve("Tramo Este"); ok {
		t.Fatalf("unexpected match for unknown segment")
	}
	if _, ok := catalog.Resolve("  "); ok {
		t.Fatalf("blank values must not resolve")
	}
}

func TestParseEquipmentEnums(t *testing.T) {
	if got, err := ParseEquipmentType("Eléctrico"); err != nil || got != EquipmentElectrical {
		t.Fatalf("expected electrico, got %q %v", got, err)
	}
	if _, err := ParseEquipmentType("bogus"); err == nil {
		t.Fatalf("expected error for bogus type")
	}
	if got, err := ParseEquipmentStatus("Fuera de servicio"); err != nil || got != EquipmentOutOfService {
		t.Fatalf("expected fuera_de_servicio, got %q %v", got, err)
	}
}
