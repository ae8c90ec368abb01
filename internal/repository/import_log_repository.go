package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpattn/maintops/internal/db"
	"github.com/rpattn/maintops/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type importLogRepository struct {
	conn db.DBTX
}

func (r *importLogRepository) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	if r.conn == nil {
		return fmt.Errorf("import log repository not initialized")
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.conn.Exec(
		ctx,
		`INSERT INTO import_logs (id, tipo, archivo, fila, mensaje)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID,
		string(entry.Kind),
		entry.FileName,
		toPgInt4(entry.RowNumber),
		entry.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to record import log: %w", err)
	}

	return nil
}

func (r *importLogRepository) List(ctx context.Context, filter ImportLogFilter) ([]domain.ImportLogEntry, error) {
	if r.conn == nil {
		return nil, fmt.Errorf("import log repository not initialized")
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset, 200)

	var (
		conditions []string
		args       []any
	)
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		conditions = append(conditions, fmt.Sprintf("tipo = $%d", len(args)))
	}
	if filter.FileName != "" {
		args = append(args, filter.FileName)
		conditions = append(conditions, fmt.Sprintf("archivo = $%d", len(args)))
	}

	query := `SELECT id, tipo, archivo, fila, mensaje, created_at FROM import_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, fila ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.ImportLogEntry{}
	for rows.Next() {
		var (
			entry     domain.ImportLogEntry
			kind      string
			rowNumber pgtype.Int4
			createdAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&entry.ID,
			&kind,
			&entry.FileName,
			&rowNumber,
			&entry.ErrorMessage,
			&createdAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", scanErr)
		}

		entry.Kind = domain.ImportKind(kind)
		entry.RowNumber = fromPgInt4(rowNumber)
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time
		}

		logs = append(logs, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate import logs: %w", rowsErr)
	}

	return logs, nil
}
