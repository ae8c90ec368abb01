// Package ingestion validates and imports equipment inventories and annual
// maintenance plans from CSV or XLSX uploads.
package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/equipment"
	"github.com/rpattn/maintops/internal/metrics"
	"github.com/rpattn/maintops/internal/repository"
)

// DefaultPreviewLimit caps the valid rows returned by a preview.
const DefaultPreviewLimit = 20

// Service validates uploads and writes the accepted rows.
type Service struct {
	store        repository.Store
	metrics      *metrics.Collector
	previewLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithPreviewLimit overrides DefaultPreviewLimit.
func WithPreviewLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.previewLimit = limit
		}
	}
}

// WithMetrics records row outcomes on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Service) { s.metrics = collector }
}

// NewService creates a new ingestion service.
func NewService(store repository.Store, opts ...Option) *Service {
	s := &Service{store: store, previewLimit: DefaultPreviewLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload is one uploaded file.
type Upload struct {
	FileName string
	Data     io.Reader
}

// RowError lists every problem found in one data row. Rows are numbered from 1.
type RowError struct {
	Row      int      `json:"row"`
	Messages []string `json:"messages"`
}

// EquipmentPreview is the outcome of validating an equipment upload.
type EquipmentPreview struct {
	FileName    string             `json:"fileName"`
	TotalRows   int                `json:"totalRows"`
	ValidRows   int                `json:"validRows"`
	InvalidRows int                `json:"invalidRows"`
	Preview     []domain.Equipment `json:"preview"`
	Errors      []RowError         `json:"errors"`
}

// PlanPreview is the outcome of validating an annual plan upload.
type PlanPreview struct {
	FileName    string                `json:"fileName"`
	TotalRows   int                   `json:"totalRows"`
	ValidRows   int                   `json:"validRows"`
	InvalidRows int                   `json:"invalidRows"`
	Preview     []domain.PlanActivity `json:"preview"`
	Errors      []RowError            `json:"errors"`
}

// CommitSummary reports what an import wrote.
type CommitSummary struct {
	Kind        domain.ImportKind `json:"kind"`
	FileName    string            `json:"fileName"`
	TotalRows   int               `json:"totalRows"`
	Inserted    int64             `json:"inserted"`
	InvalidRows int               `json:"invalidRows"`
	Errors      []RowError        `json:"errors"`
}

type equipmentBatch struct {
	total  int
	valid  []domain.Equipment
	errors []RowError
}

type planBatch struct {
	total  int
	valid  []domain.PlanActivity
	errors []RowError
}

// PreviewEquipment validates an equipment upload without writing anything.
func (s *Service) PreviewEquipment(ctx context.Context, upload Upload) (EquipmentPreview, error) {
	batch, err := s.validateEquipment(ctx, upload)
	if err != nil {
		return EquipmentPreview{}, err
	}
	preview := batch.valid
	if len(preview) > s.previewLimit {
		preview = preview[:s.previewLimit]
	}
	return EquipmentPreview{
		FileName:    upload.FileName,
		TotalRows:   batch.total,
		ValidRows:   len(batch.valid),
		InvalidRows: len(batch.errors),
		Preview:     preview,
		Errors:      batch.errors,
	}, nil
}

// CommitEquipment validates the upload again and inserts every valid row in a
// single batch. Row errors are written to the import log in the same
// transaction. Existing equipment is not checked for duplicates.
func (s *Service) CommitEquipment(ctx context.Context, upload Upload) (CommitSummary, error) {
	if err := auth.RequireRole(ctx, domain.RoleAdmin, domain.RoleSupervisor); err != nil {
		return CommitSummary{}, err
	}
	batch, err := s.validateEquipment(ctx, upload)
	if err != nil {
		return CommitSummary{}, err
	}

	summary := CommitSummary{
		Kind:        domain.ImportEquipment,
		FileName:    upload.FileName,
		TotalRows:   batch.total,
		InvalidRows: len(batch.errors),
		Errors:      batch.errors,
	}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if len(batch.valid) > 0 {
			inserted, err := tx.Equipment().CreateBatch(ctx, batch.valid)
			if err != nil {
				return fmt.Errorf("failed to insert equipment batch: %w", err)
			}
			summary.Inserted = inserted
		}
		return s.recordErrors(ctx, tx, domain.ImportEquipment, upload.FileName, batch.errors)
	})
	if err != nil {
		return CommitSummary{}, err
	}

	s.metrics.RecordImportRows(domain.ImportEquipment, metrics.RowInserted, int(summary.Inserted))
	log.Printf("[IMPORT] %s: inserted %d equipment rows, %d rejected", upload.FileName, summary.Inserted, summary.InvalidRows)
	return summary, nil
}

// PreviewPlan validates an annual plan upload without writing anything.
func (s *Service) PreviewPlan(ctx context.Context, upload Upload) (PlanPreview, error) {
	batch, err := s.validatePlan(upload)
	if err != nil {
		return PlanPreview{}, err
	}
	preview := batch.valid
	if len(preview) > s.previewLimit {
		preview = preview[:s.previewLimit]
	}
	return PlanPreview{
		FileName:    upload.FileName,
		TotalRows:   batch.total,
		ValidRows:   len(batch.valid),
		InvalidRows: len(batch.errors),
		Preview:     preview,
		Errors:      batch.errors,
	}, nil
}

// CommitPlan stores the valid plan activities. No work orders are created.
func (s *Service) CommitPlan(ctx context.Context, upload Upload) (CommitSummary, error) {
	if err := auth.RequireRole(ctx, domain.RoleAdmin, domain.RoleSupervisor); err != nil {
		return CommitSummary{}, err
	}
	batch, err := s.validatePlan(upload)
	if err != nil {
		return CommitSummary{}, err
	}

	summary := CommitSummary{
		Kind:        domain.ImportAnnualPlan,
		FileName:    upload.FileName,
		TotalRows:   batch.total,
		InvalidRows: len(batch.errors),
		Errors:      batch.errors,
	}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if len(batch.valid) > 0 {
			inserted, err := tx.AnnualPlans().CreateBatch(ctx, batch.valid)
			if err != nil {
				return fmt.Errorf("failed to insert plan activities: %w", err)
			}
			summary.Inserted = inserted
		}
		return s.recordErrors(ctx, tx, domain.ImportAnnualPlan, upload.FileName, batch.errors)
	})
	if err != nil {
		return CommitSummary{}, err
	}

	s.metrics.RecordImportRows(domain.ImportAnnualPlan, metrics.RowInserted, int(summary.Inserted))
	log.Printf("[IMPORT] %s: inserted %d plan activities, %d rejected", upload.FileName, summary.Inserted, summary.InvalidRows)
	return summary, nil
}

// Logs lists recorded import row errors, newest first.
func (s *Service) Logs(ctx context.Context, filter repository.ImportLogFilter) ([]domain.ImportLogEntry, error) {
	return s.store.ImportLogs().List(ctx, filter)
}

// Plan lists stored plan activities for year, or every year when zero.
func (s *Service) Plan(ctx context.Context, year int) ([]domain.PlanActivity, error) {
	return s.store.AnnualPlans().List(ctx, year)
}

func (s *Service) validateEquipment(ctx context.Context, upload Upload) (equipmentBatch, error) {
	table, err := readTable(upload)
	if err != nil {
		return equipmentBatch{}, err
	}
	if err := joinMissing(table.missing(equipmentHeaderIndex, EquipmentColumns[:requiredEquipmentColumns])); err != nil {
		return equipmentBatch{}, err
	}

	catalogs, err := equipment.LoadCatalogs(ctx, s.store.Catalogs())
	if err != nil {
		return equipmentBatch{}, err
	}

	batch := equipmentBatch{total: len(table.rows), errors: []RowError{}}
	for _, row := range table.rows {
		item, messages := validateEquipmentRow(table.values(row, equipmentHeaderIndex), catalogs)
		if len(messages) > 0 {
			batch.errors = append(batch.errors, RowError{Row: row.number, Messages: messages})
			continue
		}
		batch.valid = append(batch.valid, item)
	}

	s.metrics.RecordImportRows(domain.ImportEquipment, metrics.RowValid, len(batch.valid))
	s.metrics.RecordImportRows(domain.ImportEquipment, metrics.RowRejected, len(batch.errors))
	return batch, nil
}

func (s *Service) validatePlan(upload Upload) (planBatch, error) {
	table, err := readTable(upload)
	if err != nil {
		return planBatch{}, err
	}
	if err := joinMissing(table.missing(planHeaderIndex, PlanColumns)); err != nil {
		return planBatch{}, err
	}

	batch := planBatch{total: len(table.rows), errors: []RowError{}}
	for _, row := range table.rows {
		activity, messages := validatePlanRow(table.values(row, planHeaderIndex), upload.FileName)
		if len(messages) > 0 {
			batch.errors = append(batch.errors, RowError{Row: row.number, Messages: messages})
			continue
		}
		batch.valid = append(batch.valid, activity)
	}

	s.metrics.RecordImportRows(domain.ImportAnnualPlan, metrics.RowValid, len(batch.valid))
	s.metrics.RecordImportRows(domain.ImportAnnualPlan, metrics.RowRejected, len(batch.errors))
	return batch, nil
}

func (s *Service) recordErrors(ctx context.Context, tx repository.Store, kind domain.ImportKind, fileName string, rowErrors []RowError) error {
	for _, rowErr := range rowErrors {
		row := rowErr.Row
		err := tx.ImportLogs().Record(ctx, domain.ImportLogEntry{
			Kind:         kind,
			FileName:     fileName,
			RowNumber:    &row,
			ErrorMessage: strings.Join(rowErr.Messages, "; "),
		})
		if err != nil {
			return fmt.Errorf("failed to record import error for row %d: %w", row, err)
		}
	}
	return nil
}

func readTable(upload Upload) (tableData, error) {
	if upload.Data == nil {
		return tableData{}, ErrEmptyFile
	}
	payload, err := io.ReadAll(upload.Data)
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return tableData{}, ErrEmptyFile
	}
	return parseTable(upload.FileName, payload)
}
