package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/maintops/internal/db"
	"github.com/rpattn/maintops/internal/domain"
)

type reportRepository struct {
	conn db.DBTX
}

func (r *reportRepository) Dashboard(ctx context.Context, now time.Time) (domain.Dashboard, error) {
	dashboard := domain.Dashboard{
		WorkOrdersByState: map[domain.WorkOrderState]int{},
		EquipmentByStatus: map[domain.EquipmentStatus]int{},
	}

	stateRows, err := r.conn.Query(ctx, `SELECT estado, COUNT(*) FROM ordenes_trabajo GROUP BY estado`)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("failed to count work orders by state: %w", err)
	}
	err = collectCounts(stateRows, func(label string, count int) {
		dashboard.WorkOrdersByState[domain.WorkOrderState(label)] = count
	})
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("failed to count work orders by state: %w", err)
	}

	statusRows, err := r.conn.Query(ctx, `SELECT estado, COUNT(*) FROM equipos GROUP BY estado`)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("failed to count equipment by status: %w", err)
	}
	err = collectCounts(statusRows, func(label string, count int) {
		dashboard.EquipmentByStatus[domain.EquipmentStatus(label)] = count
	})
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("failed to count equipment by status: %w", err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var (
		overdue      int64
		nextWeek     int64
		avgHours     float64
		completed30d int64
	)
	err = r.conn.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM equipos
			  WHERE proximo_mantenimiento < $1::date AND estado <> 'dado_de_baja'),
			(SELECT COUNT(*) FROM ordenes_trabajo
			  WHERE fecha_programada >= $2::timestamptz AND fecha_programada < $2::timestamptz + INTERVAL '7 days'
			    AND estado NOT IN ('Completada', 'Cancelada')),
			(SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (fecha_fin - fecha_inicio)) / 3600.0), 0)::float8
			   FROM ordenes_trabajo
			  WHERE estado = 'Completada' AND fecha_inicio IS NOT NULL AND fecha_fin IS NOT NULL),
			(SELECT COUNT(*) FROM ordenes_trabajo
			  WHERE estado = 'Completada' AND fecha_fin >= $3::timestamptz - INTERVAL '30 days')`,
		today, now, now,
	).Scan(&overdue, &nextWeek, &avgHours, &completed30d)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("failed to compute dashboard figures: %w", err)
	}

	dashboard.OverdueMaintenance = int(overdue)
	dashboard.ScheduledNextWeek = int(nextWeek)
	dashboard.AverageCompletionHours = avgHours
	dashboard.CompletedLast30Days = int(completed30d)
	return dashboard, nil
}

type countRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

func collectCounts(rows countRows, record func(label string, count int)) error {
	defer rows.Close()
	for rows.Next() {
		var (
			label string
			count int64
		)
		if err := rows.Scan(&label, &count); err != nil {
			return err
		}
		record(label, int(count))
	}
	return rows.Err()
}
