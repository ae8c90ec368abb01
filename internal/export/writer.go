package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/maintops/internal/domain"
)

// EquipmentHeader is the fixed equipment export header.
var EquipmentHeader = []string{
	"ID",
	"Nombre",
	"Tipo",
	"Marca",
	"Modelo",
	"Nro Serie",
	"Estado",
	"Ubicación",
	"Zona",
	"Tramo",
	"Próximo Mantenimiento",
	"Responsable",
}

const equipmentSheet = "Equipos"

func equipmentRecord(item domain.Equipment) []string {
	return []string{
		item.ID.String(),
		item.Name,
		string(item.Type),
		item.Brand,
		item.Model,
		item.SerialNumber,
		string(item.Status),
		item.PhysicalLocation,
		item.Zone,
		item.SegmentName,
		formatDate(item.NextMaintenance),
		item.Responsible,
	}
}

// WriteEquipmentCSV writes the header and one line per item. Every field is
// quoted, including empty ones.
func WriteEquipmentCSV(w io.Writer, items []domain.Equipment) error {
	buf := bufio.NewWriter(w)
	if err := writeQuotedLine(buf, EquipmentHeader); err != nil {
		return err
	}
	for _, item := range items {
		if err := writeQuotedLine(buf, equipmentRecord(item)); err != nil {
			return err
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// WriteEquipmentXLSX writes the same columns as WriteEquipmentCSV into a
// single-sheet workbook.
func WriteEquipmentXLSX(w io.Writer, items []domain.Equipment) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", equipmentSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	stream, err := f.NewStreamWriter(equipmentSheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	if err := stream.SetRow("A1", toCells(EquipmentHeader)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, item := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := stream.SetRow(cell, toCells(equipmentRecord(item))); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeQuotedLine(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(field, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func formatDate(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Format("2006-01-02")
}
