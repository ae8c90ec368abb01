package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx" in any case. Empty means CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", domain.ErrValidation, raw)
	}
}

// ContentType is the response media type for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

type Service struct {
	equipment repository.EquipmentRepository
	pageSize  int
	now       func() time.Time
}

type Option func(*Service)

func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(equipment repository.EquipmentRepository, opts ...Option) *Service {
	service := &Service{
		equipment: equipment,
		pageSize:  1000,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Equipment writes the full equipment list to w in the given format and
// returns the number of rows written.
func (s *Service) Equipment(ctx context.Context, format Format, w io.Writer) (int, error) {
	items, err := s.allEquipment(ctx)
	if err != nil {
		return 0, err
	}

	switch format {
	case FormatXLSX:
		err = WriteEquipmentXLSX(w, items)
	default:
		err = WriteEquipmentCSV(w, items)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write equipment export: %w", err)
	}
	log.Printf("[EXPORT] wrote %d equipment rows as %s", len(items), format)
	return len(items), nil
}

// FileName builds the download name, e.g. equipos-2024-03-10.csv.
func (s *Service) FileName(format Format) string {
	stamp := s.now().UTC().Format("2006-01-02")
	return sanitizeFileComponent("equipos "+stamp) + "." + string(format)
}

func (s *Service) allEquipment(ctx context.Context) ([]domain.Equipment, error) {
	var out []domain.Equipment
	for offset := 0; ; offset += s.pageSize {
		page, total, err := s.equipment.List(ctx, domain.EquipmentFilter{Limit: s.pageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("failed to list equipment: %w", err)
		}
		out = append(out, page...)
		if len(page) < s.pageSize || len(out) >= total {
			return out, nil
		}
	}
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	result := strings.Trim(builder.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}
