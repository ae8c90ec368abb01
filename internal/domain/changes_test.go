package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDiffWorkOrdersReportsOnlyChangedFields(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	before := WorkOrder{
		ID:              uuid.New(),
		ScheduledDate:   scheduled,
		MaintenanceType: "Preventivo eléctrico",
		Technician:      "Ana",
		State:           StatePlanned,
	}
	after := before
	after.Technician = "Luis"
	after.Description = "Cambio de luminarias"

	changes := DiffWorkOrders(before, after)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d: %+v", len(changes), changes)
	}
	if change := changes["tecnico_asignado"]; change.Old != "Ana" || change.New != "Luis" {
		t.Fatalf("unexpected technician change: %+v", change)
	}
	if change := changes["descripcion"]; change.Old != "" || change.New != "Cambio de luminarias" {
		t.Fatalf("unexpected description change: %+v", change)
	}
	if _, ok := changes["estado"]; ok {
		t.Fatalf("state did not change and must not be reported")
	}
}

func TestDiffWorkOrdersNoChanges(t *testing.T) {
	start := time.Now()
	wo := WorkOrder{ID: uuid.New(), State: StateInProgress, StartTime: &start}
	copyStart := start
	same := wo
	same.StartTime = &copyStart

	if changes := DiffWorkOrders(wo, same); len(changes) != 0 {
		t.Fatalf("expected no changes, got %+v", changes)
	}
}

func TestDiffWorkOrdersTimestamps(t *testing.T) {
	start := time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)
	before := WorkOrder{State: StatePlanned}
	after := WorkOrder{State: StateInProgress, StartTime: &start}

	changes := DiffWorkOrders(before, after)
	if got := ChangedColumns(changes); len(got) != 2 || got[0] != "estado" || got[1] != "fecha_inicio" {
		t.Fatalf("unexpected changed columns: %v", got)
	}
	if changes["fecha_inicio"].Old != nil {
		t.Fatalf("expected nil old start time, got %v", changes["fecha_inicio"].Old)
	}
	if changes["fecha_inicio"].New != "2025-01-02T08:00:00Z" {
		t.Fatalf("unexpected new start time %v", changes["fecha_inicio"].New)
	}
}
