package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository/memory"
)

func sampleEquipment() domain.Equipment {
	next := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return domain.Equipment{
		ID:               uuid.MustParse("3f1c6b9e-8a51-4a44-9d0e-1f2d3c4b5a69"),
		Name:             `UPS "principal"`,
		Type:             domain.EquipmentElectrical,
		Brand:            "APC",
		Model:            "SRT",
		SerialNumber:     "SN-1",
		Status:           domain.EquipmentOperational,
		PhysicalLocation: "Sala 1, rack 2",
		Zone:             "Norte",
		SegmentName:      "Tramo Uno",
		NextMaintenance:  &next,
		Responsible:      "Ana",
	}
}

func TestWriteEquipmentCSV_QuotesEveryField(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEquipmentCSV(&buf, []domain.Equipment{sampleEquipment(), {Name: "Sin datos"}}); err != nil {
		t.Fatalf("WriteEquipmentCSV returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}

	wantHeader := `"ID","Nombre","Tipo","Marca","Modelo","Nro Serie","Estado","Ubicación","Zona","Tramo","Próximo Mantenimiento","Responsable"`
	if lines[0] != wantHeader {
		t.Fatalf("unexpected header:\n%s", lines[0])
	}

	wantRow := `"3f1c6b9e-8a51-4a44-9d0e-1f2d3c4b5a69","UPS ""principal""","electrico","APC","SRT","SN-1","operativo","Sala 1, rack 2","Norte","Tramo Uno","2024-05-01","Ana"`
	if lines[1] != wantRow {
		t.Fatalf("unexpected row:\n%s", lines[1])
	}
	if !strings.Contains(lines[2], `"Sin datos","","",""`) {
		t.Fatalf("expected empty fields to stay quoted: %s", lines[2])
	}
}

func TestWriteEquipmentXLSX_SameColumns(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEquipmentXLSX(&buf, []domain.Equipment{sampleEquipment()}); err != nil {
		t.Fatalf("WriteEquipmentXLSX returned error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(equipmentSheet)
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], "|") != strings.Join(EquipmentHeader, "|") {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != `UPS "principal"` || rows[1][10] != "2024-05-01" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatCSV, "CSV": FormatCSV, "xlsx": FormatXLSX}
	for raw, want := range cases {
		got, err := ParseFormat(raw)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatalf("expected pdf to be rejected")
	}
}

func TestServiceEquipment_PagesThroughAllRows(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		if _, err := store.Equipment().Create(ctx, domain.Equipment{Name: fmt.Sprintf("Cámara %d", i), Type: domain.EquipmentElectronic}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	service := NewService(store.Equipment(), WithPageSize(3))
	var buf bytes.Buffer
	n, err := service.Equipment(ctx, FormatCSV, &buf)
	if err != nil {
		t.Fatalf("Equipment returned error: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 rows, got %d", n)
	}
	if got := strings.Count(buf.String(), "\n"); got != 8 {
		t.Fatalf("expected 8 lines, got %d", got)
	}
}

func TestHandler_ServesDownload(t *testing.T) {
	store := memory.NewStore()
	if _, err := store.Equipment().Create(context.Background(), sampleEquipment()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	fixed := func() time.Time { return time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC) }
	handler := NewHTTPHandler(NewService(store.Equipment(), WithClock(fixed)))

	req := httptest.NewRequest(http.MethodGet, "/exports/equipment?format=csv", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="equipos-2024-03-10.csv"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), `"ID","Nombre"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/exports/equipment?format=pdf", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", rec.Code)
	}
}
