package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/maintops/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported file format", domain.ErrValidation)
	// ErrMissingColumns is returned when the header lacks required columns.
	ErrMissingColumns = fmt.Errorf("%w: missing required columns", domain.ErrValidation)
	// ErrEmptyFile is returned when the upload has no header row.
	ErrEmptyFile = fmt.Errorf("%w: no rows found in file", domain.ErrValidation)

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// tableData is a parsed upload: the header and the non-empty data rows, each
// padded to the header width.
type tableData struct {
	rawHeaders []string
	keys       []string
	rows       []tableRow
}

type tableRow struct {
	number int
	cells  []string
}

// headerKey folds a header label so "Fecha Inicio", "fechaInicio" and
// "fecha_inicio" compare equal.
func headerKey(label string) string {
	return strings.ReplaceAll(domain.FoldLabel(label), "_", "")
}

// values maps each known column onto the row's cell. columns maps a header key
// to the canonical field name.
func (t tableData) values(row tableRow, columns map[string]string) map[string]string {
	out := make(map[string]string, len(columns))
	for i, key := range t.keys {
		field, ok := columns[key]
		if !ok || i >= len(row.cells) {
			continue
		}
		if _, taken := out[field]; taken {
			continue
		}
		out[field] = strings.TrimSpace(row.cells[i])
	}
	return out
}

// missing returns the canonical names of required fields with no column.
func (t tableData) missing(columns map[string]string, required []string) []string {
	present := make(map[string]bool, len(t.keys))
	for _, key := range t.keys {
		if field, ok := columns[key]; ok {
			present[field] = true
		}
	}
	var out []string
	for _, field := range required {
		if !present[field] {
			out = append(out, field)
		}
	}
	return out
}

func parseTable(fileName string, payload []byte) (tableData, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv", ".txt":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return tableData{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) (tableData, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return tableData{}, fmt.Errorf("%w: failed to read csv: %v", domain.ErrValidation, err)
	}
	return normalizeTable(records)
}

func parseExcel(payload []byte) (tableData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return tableData{}, fmt.Errorf("%w: failed to open xlsx: %v", domain.ErrValidation, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableData{}, fmt.Errorf("%w: excel file has no sheets", domain.ErrValidation)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return normalizeTable(rows)
}

// normalizeTable takes the first non-empty record as the header. Data rows are
// numbered from 1 in file order, skipping blank lines.
func normalizeTable(records [][]string) (tableData, error) {
	var (
		headerRow []string
		dataRows  [][]string
	)
	for _, row := range records {
		if len(cleanRow(row)) == 0 {
			continue
		}
		if headerRow == nil {
			headerRow = row
			continue
		}
		dataRows = append(dataRows, row)
	}
	if headerRow == nil {
		return tableData{}, ErrEmptyFile
	}

	rawHeaders := make([]string, len(headerRow))
	keys := make([]string, len(headerRow))
	for i, value := range headerRow {
		rawHeaders[i] = strings.TrimSpace(value)
		keys[i] = headerKey(value)
	}

	rows := make([]tableRow, 0, len(dataRows))
	for i, row := range filterEmptyRows(dataRows) {
		rows = append(rows, tableRow{number: i + 1, cells: padRow(row, len(headerRow))})
	}

	return tableData{rawHeaders: rawHeaders, keys: keys, rows: rows}, nil
}

func cleanRow(row []string) []string {
	var cleaned []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			cleaned = append(cleaned, cell)
		}
	}
	return cleaned
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}

func filterEmptyRows(rows [][]string) [][]string {
	var filtered [][]string
	for _, row := range rows {
		if len(cleanRow(row)) > 0 {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func joinMissing(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(fields, ", "))
}
