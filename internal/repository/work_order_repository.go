package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rpattn/maintops/internal/db"
	"github.com/rpattn/maintops/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const workOrderColumns = `id, fecha_programada, sitio, tramo, ubicacion, equipo_id, tipo_equipo,
	tipo_mantenimiento, frecuencia, proveedor, criticidad, tecnico_asignado, descripcion,
	observaciones, nota_cierre, estado, fecha_inicio, fecha_fin, created_at, updated_at`

type workOrderRepository struct {
	conn db.DBTX
}

func (r *workOrderRepository) Create(ctx context.Context, wo domain.WorkOrder) (domain.WorkOrder, error) {
	if wo.ID == uuid.Nil {
		wo.ID = uuid.New()
	}
	row := r.conn.QueryRow(ctx,
		`INSERT INTO ordenes_trabajo (id, fecha_programada, sitio, tramo, ubicacion, equipo_id, tipo_equipo,
			tipo_mantenimiento, frecuencia, proveedor, criticidad, tecnico_asignado, descripcion,
			observaciones, nota_cierre, estado, fecha_inicio, fecha_fin)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 RETURNING `+workOrderColumns,
		workOrderArgs(wo)...,
	)
	created, err := scanWorkOrder(row)
	if err != nil {
		return domain.WorkOrder{}, fmt.Errorf("failed to create work order: %w", err)
	}
	return created, nil
}

func (r *workOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.WorkOrder, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+workOrderColumns+` FROM ordenes_trabajo WHERE id = $1`, id)
	wo, err := scanWorkOrder(row)
	if err != nil {
		return domain.WorkOrder{}, fmt.Errorf("failed to get work order %s: %w", id, notFound(err))
	}
	return wo, nil
}

func (r *workOrderRepository) List(ctx context.Context, filter domain.WorkOrderFilter) ([]domain.WorkOrder, int, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset, 100)

	var (
		conditions []string
		args       []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.State != "" {
		add("estado = $%d", string(filter.State))
	}
	if technician := strings.TrimSpace(filter.Technician); technician != "" {
		add("tecnico_asignado ILIKE $%d", technician)
	}
	if filter.EquipmentID != nil {
		add("equipo_id = $%d", *filter.EquipmentID)
	}
	if filter.From != nil {
		add("fecha_programada >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("fecha_programada < $%d", *filter.To)
	}

	query := `SELECT ` + workOrderColumns + `, COUNT(*) OVER() AS total_count FROM ordenes_trabajo`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY fecha_programada ASC, created_at ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list work orders: %w", err)
	}
	defer rows.Close()

	workOrders := []domain.WorkOrder{}
	total := 0
	for rows.Next() {
		var count int64
		wo, scanErr := scanWorkOrder(rows, &count)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan work order: %w", scanErr)
		}
		total = int(count)
		workOrders = append(workOrders, wo)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, fmt.Errorf("failed to iterate work orders: %w", rowsErr)
	}

	return workOrders, total, nil
}

func (r *workOrderRepository) Update(ctx context.Context, wo domain.WorkOrder) (domain.WorkOrder, error) {
	row := r.conn.QueryRow(ctx,
		`UPDATE ordenes_trabajo SET
			fecha_programada = $2, sitio = $3, tramo = $4, ubicacion = $5, equipo_id = $6, tipo_equipo = $7,
			tipo_mantenimiento = $8, frecuencia = $9, proveedor = $10, criticidad = $11,
			tecnico_asignado = $12, descripcion = $13, observaciones = $14, nota_cierre = $15,
			estado = $16, fecha_inicio = $17, fecha_fin = $18, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+workOrderColumns,
		workOrderArgs(wo)...,
	)
	updated, err := scanWorkOrder(row)
	if err != nil {
		return domain.WorkOrder{}, fmt.Errorf("failed to update work order %s: %w", wo.ID, notFound(err))
	}
	return updated, nil
}

// Delete removes the work order. Child rows cascade; history rows have no
// foreign key and are kept.
func (r *workOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM ordenes_trabajo WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete work order %s: %w", id, err)
	}
	return requireAffected(tag.RowsAffected())
}

func workOrderArgs(wo domain.WorkOrder) []any {
	return []any{
		wo.ID,
		wo.ScheduledDate,
		wo.Site,
		wo.Segment,
		wo.Location,
		toPgUUID(wo.EquipmentID),
		wo.EquipmentType,
		wo.MaintenanceType,
		wo.Frequency,
		wo.Provider,
		wo.Criticality,
		wo.Technician,
		wo.Description,
		wo.Observations,
		wo.ClosingNote,
		string(wo.State),
		toPgTimestamptz(wo.StartTime),
		toPgTimestamptz(wo.EndTime),
	}
}

func scanWorkOrder(row pgx.Row, extra ...any) (domain.WorkOrder, error) {
	var (
		wo          domain.WorkOrder
		equipmentID pgtype.UUID
		state       string
		startTime   pgtype.Timestamptz
		endTime     pgtype.Timestamptz
	)
	dest := []any{
		&wo.ID,
		&wo.ScheduledDate,
		&wo.Site,
		&wo.Segment,
		&wo.Location,
		&equipmentID,
		&wo.EquipmentType,
		&wo.MaintenanceType,
		&wo.Frequency,
		&wo.Provider,
		&wo.Criticality,
		&wo.Technician,
		&wo.Description,
		&wo.Observations,
		&wo.ClosingNote,
		&state,
		&startTime,
		&endTime,
		&wo.CreatedAt,
		&wo.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.WorkOrder{}, err
	}

	wo.EquipmentID = fromPgUUID(equipmentID)
	wo.State = domain.WorkOrderState(state)
	wo.StartTime = fromPgTimestamptz(startTime)
	wo.EndTime = fromPgTimestamptz(endTime)
	return wo, nil
}

type workOrderHistoryRepository struct {
	conn db.DBTX
}

func (r *workOrderHistoryRepository) Append(ctx context.Context, record domain.HistoryRecord) (domain.HistoryRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	changes := record.Changes
	if changes == nil {
		changes = map[string]domain.FieldChange{}
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("failed to encode history changes: %w", err)
	}

	err = r.conn.QueryRow(ctx,
		`INSERT INTO ordenes_trabajo_historial
			(id, orden_id, accion, estado_anterior, estado_nuevo, descripcion, cambios, usuario)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		record.ID,
		record.WorkOrderID,
		string(record.Action),
		string(record.PreviousState),
		string(record.NewState),
		record.Description,
		changesJSON,
		record.Actor,
	).Scan(&record.CreatedAt)
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("failed to append work order history: %w", err)
	}
	return record, nil
}

func (r *workOrderHistoryRepository) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.HistoryRecord, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT id, orden_id, accion, estado_anterior, estado_nuevo, descripcion, cambios, usuario, created_at
		 FROM ordenes_trabajo_historial
		 WHERE orden_id = $1
		 ORDER BY created_at ASC, id ASC`,
		workOrderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list work order history: %w", err)
	}
	defer rows.Close()

	records := []domain.HistoryRecord{}
	for rows.Next() {
		var (
			record      domain.HistoryRecord
			action      string
			previous    string
			next        string
			changesJSON []byte
		)
		if scanErr := rows.Scan(
			&record.ID,
			&record.WorkOrderID,
			&action,
			&previous,
			&next,
			&record.Description,
			&changesJSON,
			&record.Actor,
			&record.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan work order history: %w", scanErr)
		}
		record.Action = domain.HistoryAction(action)
		record.PreviousState = domain.WorkOrderState(previous)
		record.NewState = domain.WorkOrderState(next)
		if len(changesJSON) > 0 {
			if err := json.Unmarshal(changesJSON, &record.Changes); err != nil {
				return nil, fmt.Errorf("failed to decode history changes: %w", err)
			}
		}
		records = append(records, record)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate work order history: %w", rowsErr)
	}
	return records, nil
}
