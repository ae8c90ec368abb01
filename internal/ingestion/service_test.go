package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository"
	"github.com/rpattn/maintops/internal/repository/memory"
)

func seededStore() *memory.Store {
	store := memory.NewStore()
	store.SeedCatalog(domain.CatalogSegments, domain.CatalogEntry{ID: uuid.New(), Code: "T1", Name: "Tramo Uno"})
	store.SeedCatalog(domain.CatalogDirections, domain.CatalogEntry{ID: uuid.New(), Code: "N", Name: "Norte"})
	store.SeedCatalog(domain.CatalogMilestones, domain.CatalogEntry{ID: uuid.New(), Code: "PK10", Name: "Kilómetro 10"})
	store.SeedCatalog(domain.CatalogShelters, domain.CatalogEntry{ID: uuid.New(), Code: "SH1", Name: "Shelter 1"})
	store.SeedCatalog(domain.CatalogGantries, domain.CatalogEntry{ID: uuid.New(), Code: "P1", Name: "Pórtico 1"})
	return store
}

func equipmentRow(name, tipo, tramo string) string {
	return strings.Join([]string{
		name, tipo, "ABB", "X1", "r1", "S-" + name, "2019", "Caseta", "Norte", "S1",
		tramo, "norte", "pk10", "SH1", "pórtico 1", "10", "31/01/2025", "Ana", "", "",
	}, ",")
}

func equipmentCSV(rows ...string) string {
	return strings.Join(EquipmentColumns, ",") + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestPreviewEquipmentExcludesInvalidTipo(t *testing.T) {
	service := NewService(seededStore())
	data := equipmentCSV(
		equipmentRow("UPS 1", "electrico", "T1"),
		equipmentRow("UPS 2", "bogus", "T1"),
		equipmentRow("UPS 3", "Eléctrico", "tramo uno"),
	)

	preview, err := service.PreviewEquipment(context.Background(), Upload{FileName: "equipos.csv", Data: strings.NewReader(data)})
	if err != nil {
		t.Fatalf("preview returned error: %v", err)
	}

	if len(preview.Errors) != 1 {
		t.Fatalf("expected 1 error, got %+v", preview.Errors)
	}
	if preview.Errors[0].Row != 2 {
		t.Fatalf("expected error on row 2, got row %d", preview.Errors[0].Row)
	}
	if !strings.Contains(preview.Errors[0].Messages[0], "bogus") {
		t.Fatalf("expected message to mention the bad value, got %v", preview.Errors[0].Messages)
	}
	if len(preview.Preview) != 2 {
		t.Fatalf("expected preview of 2 rows, got %d", len(preview.Preview))
	}
	if preview.TotalRows != 3 || preview.ValidRows != 2 || preview.InvalidRows != 1 {
		t.Fatalf("unexpected totals: %+v", preview)
	}

	first := preview.Preview[0]
	if first.Type != domain.EquipmentElectrical || first.ManufactureYear != 2019 {
		t.Fatalf("row not converted: %+v", first)
	}
	if first.SegmentID == nil || first.GantryID == nil || first.NextMaintenance == nil {
		t.Fatalf("expected catalog references and date to be resolved: %+v", first)
	}
	if first.NextMaintenance.Format("2006-01-02") != "2025-01-31" {
		t.Fatalf("unexpected next maintenance %v", first.NextMaintenance)
	}
}

func TestPreviewEquipmentCapsPreview(t *testing.T) {
	service := NewService(seededStore())
	rows := make([]string, 25)
	for i := range rows {
		rows[i] = equipmentRow(fmt.Sprintf("Cámara %02d", i), "electronico", "T1")
	}

	preview, err := service.PreviewEquipment(context.Background(), Upload{FileName: "equipos.csv", Data: strings.NewReader(equipmentCSV(rows...))})
	if err != nil {
		t.Fatalf("preview returned error: %v", err)
	}
	if len(preview.Preview) != DefaultPreviewLimit {
		t.Fatalf("expected preview capped at %d, got %d", DefaultPreviewLimit, len(preview.Preview))
	}
	if preview.ValidRows != 25 {
		t.Fatalf("expected 25 valid rows, got %d", preview.ValidRows)
	}
}

func TestPreviewEquipmentOneErrorPerRow(t *testing.T) {
	service := NewService(seededStore())
	broken := equipmentRow("", "bogus", "T9")

	preview, err := service.PreviewEquipment(context.Background(), Upload{FileName: "equipos.csv", Data: strings.NewReader(equipmentCSV(broken))})
	if err != nil {
		t.Fatalf("preview returned error: %v", err)
	}
	if len(preview.Errors) != 1 {
		t.Fatalf("expected exactly one error entry, got %d", len(preview.Errors))
	}
	messages := strings.Join(preview.Errors[0].Messages, " | ")
	for _, want := range []string{"nombre_equipo", "bogus", "T9"} {
		if !strings.Contains(messages, want) {
			t.Fatalf("expected %q in %q", want, messages)
		}
	}
}

func TestPreviewEquipmentRejectsMissingColumns(t *testing.T) {
	service := NewService(seededStore())
	data := "nombre_equipo,tipo,marca\nUPS,electrico,ABB\n"

	_, err := service.PreviewEquipment(context.Background(), Upload{FileName: "equipos.csv", Data: strings.NewReader(data)})
	if !errors.Is(err, ErrMissingColumns) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected missing columns validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "portico") {
		t.Fatalf("expected missing column list in %q", err)
	}
}

func TestPreviewEquipmentStripsByteOrderMark(t *testing.T) {
	service := NewService(seededStore())
	data := "\xEF\xBB\xBF" + equipmentCSV(equipmentRow("UPS 1", "electrico", "T1"))

	preview, err := service.PreviewEquipment(context.Background(), Upload{FileName: "equipos.csv", Data: strings.NewReader(data)})
	if err != nil {
		t.Fatalf("preview returned error: %v", err)
	}
	if preview.ValidRows != 1 {
		t.Fatalf("expected BOM-prefixed header to parse, got %+v", preview)
	}
}

func TestPreviewEquipmentReadsExcel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	header := make([]interface{}, len(EquipmentColumns))
	for i, column := range EquipmentColumns {
		header[i] = column
	}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	cells := strings.Split(equipmentRow("Medidor", "medicion", "T1"), ",")
	row := make([]interface{}, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	if err := f.SetSheetRow("Sheet1", "A2", &row); err != nil {
		t.Fatalf("failed to write row: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to build workbook: %v", err)
	}

	service := NewService(seededStore())
	preview, err := service.PreviewEquipment(context.Background(), Upload{FileName: "equipos.xlsx", Data: buf})
	if err != nil {
		t.Fatalf("preview returned error: %v", err)
	}
	if preview.ValidRows != 1 || preview.Preview[0].Type != domain.EquipmentMeasurement {
		t.Fatalf("unexpected preview: %+v", preview)
	}
}

func TestPreviewRejectsUnsupportedFormat(t *testing.T) {
	service := NewService(seededStore())
	_, err := service.PreviewEquipment(context.Background(), Upload{FileName: "equipos.pdf", Data: strings.NewReader("x")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestCommitEquipmentInsertsValidRowsAndLogsErrors(t *testing.T) {
	store := seededStore()
	service := NewService(store)
	ctx := context.Background()
	data := equipmentCSV(
		equipmentRow("UPS 1", "electrico", "T1"),
		equipmentRow("UPS 2", "bogus", "T1"),
		equipmentRow("UPS 3", "electrico", "T1"),
	)

	summary, err := service.CommitEquipment(ctx, Upload{FileName: "equipos.csv", Data: strings.NewReader(data)})
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}
	if summary.Inserted != 2 || summary.InvalidRows != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	_, total, err := store.Equipment().List(ctx, domain.EquipmentFilter{})
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 stored equipment rows, got %d", total)
	}

	logs, err := service.Logs(ctx, repository.ImportLogFilter{Kind: domain.ImportEquipment})
	if err != nil {
		t.Fatalf("logs returned error: %v", err)
	}
	if len(logs) != 1 || logs[0].RowNumber == nil || *logs[0].RowNumber != 2 {
		t.Fatalf("expected one log entry for row 2, got %+v", logs)
	}
}

func TestCommitEquipmentIsAllOrNothing(t *testing.T) {
	store := seededStore()
	service := NewService(store)
	ctx := context.Background()
	store.FailOn(memory.OpImportLogRecord, errors.New("log table locked"))

	data := equipmentCSV(equipmentRow("UPS 1", "electrico", "T1"), equipmentRow("UPS 2", "bogus", "T1"))
	if _, err := service.CommitEquipment(ctx, Upload{FileName: "equipos.csv", Data: strings.NewReader(data)}); err == nil {
		t.Fatalf("expected commit to fail")
	}

	_, total, err := store.Equipment().List(ctx, domain.EquipmentFilter{})
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected batch to roll back, found %d rows", total)
	}
}

func TestPlanPreviewAndCommit(t *testing.T) {
	store := memory.NewStore()
	service := NewService(store)
	ctx := context.Background()
	data := strings.Join([]string{
		"Año,Actividad,Equipo,Responsable,Fecha Inicio,Fecha Término",
		"2024,Inspección UPS,UPS 1,Ana,2024-03-01,15/03/2024",
		"24,Limpieza,Cámara 2,Luis,2024-04-01,2024-04-02",
		"2024,Calibración,Medidor,Luis,2024-05-10,2024-05-01",
		"2024,Lubricación,Barrera 3,Eva,01/06/2024,2024-06-01",
	}, "\n")

	preview, err := service.PreviewPlan(ctx, Upload{FileName: "plan.csv", Data: strings.NewReader(data)})
	if err != nil {
		t.Fatalf("preview returned error: %v", err)
	}
	if preview.ValidRows != 2 || len(preview.Errors) != 2 {
		t.Fatalf("unexpected preview: %+v", preview)
	}
	if preview.Errors[0].Row != 2 || preview.Errors[1].Row != 3 {
		t.Fatalf("unexpected error rows: %+v", preview.Errors)
	}
	if preview.Preview[0].EndDate.Format("2006-01-02") != "2024-03-15" {
		t.Fatalf("expected DD/MM/YYYY end date to parse, got %v", preview.Preview[0].EndDate)
	}

	summary, err := service.CommitPlan(ctx, Upload{FileName: "plan.csv", Data: strings.NewReader(data)})
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}
	if summary.Inserted != 2 {
		t.Fatalf("expected 2 inserted activities, got %d", summary.Inserted)
	}

	activities, err := service.Plan(ctx, 2024)
	if err != nil {
		t.Fatalf("plan returned error: %v", err)
	}
	if len(activities) != 2 || activities[0].SourceFile != "plan.csv" {
		t.Fatalf("unexpected stored activities: %+v", activities)
	}
}

func TestPlanAcceptsCamelCaseHeaders(t *testing.T) {
	service := NewService(memory.NewStore())
	data := "anio,actividad,equipo,responsable,fechaInicio,fechaTermino\n2024,Revisión,UPS,Ana,2024-01-01,2024-01-02\n"

	preview, err := service.PreviewPlan(context.Background(), Upload{FileName: "plan.csv", Data: strings.NewReader(data)})
	if err != nil {
		t.Fatalf("preview returned error: %v", err)
	}
	if preview.ValidRows != 1 {
		t.Fatalf("expected 1 valid row, got %+v", preview)
	}
}
