package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/maintops/internal/db"
	"github.com/rpattn/maintops/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const equipmentSelect = `SELECT e.id, e.nombre_equipo, e.tipo, e.marca, e.modelo, e.version_revision, e.nro_serie,
	e.anio_fabricacion, e.ubicacion_fisica, e.zona, e.sala, e.tramo_id, e.sentido_id, e.pk_id, e.shelter_id,
	e.portico_id, e.vida_util_estimada, e.proximo_mantenimiento, e.responsable_asignado, e.proveedor_asociado,
	e.observaciones, e.estado, COALESCE(t.nombre, ''), e.created_at, e.updated_at
	FROM equipos e
	LEFT JOIN tramos t ON t.id = e.tramo_id`

// equipmentCopyColumns is the column order CreateBatch streams through COPY.
var equipmentCopyColumns = []string{
	"id", "nombre_equipo", "tipo", "marca", "modelo", "version_revision", "nro_serie",
	"anio_fabricacion", "ubicacion_fisica", "zona", "sala", "tramo_id", "sentido_id", "pk_id",
	"shelter_id", "portico_id", "vida_util_estimada", "proximo_mantenimiento",
	"responsable_asignado", "proveedor_asociado", "observaciones", "estado",
}

type equipmentRepository struct {
	conn db.DBTX
}

func (r *equipmentRepository) Create(ctx context.Context, equipment domain.Equipment) (domain.Equipment, error) {
	if equipment.ID == uuid.Nil {
		equipment.ID = uuid.New()
	}
	if equipment.Status == "" {
		equipment.Status = domain.EquipmentOperational
	}
	_, err := r.conn.Exec(ctx,
		`INSERT INTO equipos (`+strings.Join(equipmentCopyColumns, ", ")+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		equipmentRow(equipment)...,
	)
	if err != nil {
		return domain.Equipment{}, fmt.Errorf("failed to create equipment: %w", err)
	}
	return r.GetByID(ctx, equipment.ID)
}

func (r *equipmentRepository) CreateBatch(ctx context.Context, items []domain.Equipment) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if item.Status == "" {
			item.Status = domain.EquipmentOperational
		}
		rows = append(rows, equipmentRow(item))
	}

	copied, err := r.conn.CopyFrom(ctx, pgx.Identifier{"equipos"}, equipmentCopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy equipment batch: %w", err)
	}
	return copied, nil
}

func (r *equipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Equipment, error) {
	row := r.conn.QueryRow(ctx, equipmentSelect+` WHERE e.id = $1`, id)
	equipment, err := scanEquipment(row)
	if err != nil {
		return domain.Equipment{}, fmt.Errorf("failed to get equipment %s: %w", id, notFound(err))
	}
	return equipment, nil
}

// GetByIDs returns the equipment found among ids, in no particular order.
func (r *equipmentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Equipment, error) {
	if len(ids) == 0 {
		return []domain.Equipment{}, nil
	}
	rows, err := r.conn.Query(ctx, equipmentSelect+` WHERE e.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment by IDs: %w", err)
	}
	defer rows.Close()

	items := []domain.Equipment{}
	for rows.Next() {
		equipment, scanErr := scanEquipment(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", scanErr)
		}
		items = append(items, equipment)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate equipment: %w", rowsErr)
	}
	return items, nil
}

func (r *equipmentRepository) List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.Equipment, int, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset, 100)

	var (
		conditions []string
		args       []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, strings.ReplaceAll(clause, "$?", fmt.Sprintf("$%d", len(args))))
	}
	if filter.Type != "" {
		add("e.tipo = $?", string(filter.Type))
	}
	if filter.Status != "" {
		add("e.estado = $?", string(filter.Status))
	}
	if filter.SegmentID != nil {
		add("e.tramo_id = $?", *filter.SegmentID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(e.nombre_equipo ILIKE $? OR e.nro_serie ILIKE $? OR e.marca ILIKE $? OR e.modelo ILIKE $?)", "%"+search+"%")
	}

	query := strings.Replace(equipmentSelect, "COALESCE(t.nombre, ''),", "COALESCE(t.nombre, ''), COUNT(*) OVER() AS total_count,", 1)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY e.nombre_equipo ASC, e.id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list equipment: %w", err)
	}
	defer rows.Close()

	items := []domain.Equipment{}
	total := 0
	for rows.Next() {
		var count int64
		equipment, scanErr := scanEquipmentCounted(rows, &count)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan equipment: %w", scanErr)
		}
		total = int(count)
		items = append(items, equipment)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, fmt.Errorf("failed to iterate equipment: %w", rowsErr)
	}
	return items, total, nil
}

// Update writes every column except estado, which only ChangeStatus moves.
func (r *equipmentRepository) Update(ctx context.Context, equipment domain.Equipment) (domain.Equipment, error) {
	tag, err := r.conn.Exec(ctx,
		`UPDATE equipos SET
			nombre_equipo = $2, tipo = $3, marca = $4, modelo = $5, version_revision = $6, nro_serie = $7,
			anio_fabricacion = $8, ubicacion_fisica = $9, zona = $10, sala = $11, tramo_id = $12,
			sentido_id = $13, pk_id = $14, shelter_id = $15, portico_id = $16, vida_util_estimada = $17,
			proximo_mantenimiento = $18, responsable_asignado = $19, proveedor_asociado = $20,
			observaciones = $21, updated_at = NOW()
		 WHERE id = $1`,
		equipmentRow(equipment)[:21]...,
	)
	if err != nil {
		return domain.Equipment{}, fmt.Errorf("failed to update equipment %s: %w", equipment.ID, err)
	}
	if err := requireAffected(tag.RowsAffected()); err != nil {
		return domain.Equipment{}, fmt.Errorf("failed to update equipment %s: %w", equipment.ID, err)
	}
	return r.GetByID(ctx, equipment.ID)
}

func (r *equipmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.EquipmentStatus) error {
	tag, err := r.conn.Exec(ctx, `UPDATE equipos SET estado = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update equipment status %s: %w", id, err)
	}
	return requireAffected(tag.RowsAffected())
}

func (r *equipmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM equipos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete equipment %s: %w", id, err)
	}
	return requireAffected(tag.RowsAffected())
}

func equipmentRow(e domain.Equipment) []any {
	return []any{
		e.ID,
		e.Name,
		string(e.Type),
		e.Brand,
		e.Model,
		e.Revision,
		e.SerialNumber,
		int32(e.ManufactureYear),
		e.PhysicalLocation,
		e.Zone,
		e.Room,
		toPgUUID(e.SegmentID),
		toPgUUID(e.DirectionID),
		toPgUUID(e.MilestoneID),
		toPgUUID(e.ShelterID),
		toPgUUID(e.GantryID),
		toPgInt4(e.UsefulLifeYears),
		toPgDate(e.NextMaintenance),
		e.Responsible,
		e.Provider,
		e.Notes,
		string(e.Status),
	}
}

func scanEquipment(row pgx.Row) (domain.Equipment, error) {
	return scanEquipmentCounted(row, nil)
}

func scanEquipmentCounted(row pgx.Row, count *int64) (domain.Equipment, error) {
	var (
		e               domain.Equipment
		equipmentType   string
		status          string
		segmentID       pgtype.UUID
		directionID     pgtype.UUID
		milestoneID     pgtype.UUID
		shelterID       pgtype.UUID
		gantryID        pgtype.UUID
		usefulLife      pgtype.Int4
		nextMaintenance pgtype.Date
		manufactureYear int32
	)
	dest := []any{
		&e.ID,
		&e.Name,
		&equipmentType,
		&e.Brand,
		&e.Model,
		&e.Revision,
		&e.SerialNumber,
		&manufactureYear,
		&e.PhysicalLocation,
		&e.Zone,
		&e.Room,
		&segmentID,
		&directionID,
		&milestoneID,
		&shelterID,
		&gantryID,
		&usefulLife,
		&nextMaintenance,
		&e.Responsible,
		&e.Provider,
		&e.Notes,
		&status,
		&e.SegmentName,
	}
	if count != nil {
		dest = append(dest, count)
	}
	dest = append(dest, &e.CreatedAt, &e.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return domain.Equipment{}, err
	}

	e.Type = domain.EquipmentType(equipmentType)
	e.Status = domain.EquipmentStatus(status)
	e.ManufactureYear = int(manufactureYear)
	e.SegmentID = fromPgUUID(segmentID)
	e.DirectionID = fromPgUUID(directionID)
	e.MilestoneID = fromPgUUID(milestoneID)
	e.ShelterID = fromPgUUID(shelterID)
	e.GantryID = fromPgUUID(gantryID)
	e.UsefulLifeYears = fromPgInt4(usefulLife)
	e.NextMaintenance = fromPgDate(nextMaintenance)
	return e, nil
}

type equipmentHistoryRepository struct {
	conn db.DBTX
}

func (r *equipmentHistoryRepository) AppendStatusChange(ctx context.Context, change domain.EquipmentStatusChange) (domain.EquipmentStatusChange, error) {
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	err := r.conn.QueryRow(ctx,
		`INSERT INTO equipos_historial_estado (id, equipo_id, estado_anterior, estado_nuevo, motivo, usuario)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		change.ID, change.EquipmentID, string(change.PreviousStatus), string(change.NewStatus), change.Reason, change.Actor,
	).Scan(&change.CreatedAt)
	if err != nil {
		return domain.EquipmentStatusChange{}, fmt.Errorf("failed to append equipment status change: %w", err)
	}
	return change, nil
}

func (r *equipmentHistoryRepository) ListStatusChanges(ctx context.Context, equipmentID uuid.UUID) ([]domain.EquipmentStatusChange, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT id, equipo_id, estado_anterior, estado_nuevo, motivo, usuario, created_at
		 FROM equipos_historial_estado
		 WHERE equipo_id = $1
		 ORDER BY created_at DESC`,
		equipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment status history: %w", err)
	}
	defer rows.Close()

	changes := []domain.EquipmentStatusChange{}
	for rows.Next() {
		var (
			change   domain.EquipmentStatusChange
			previous string
			next     string
		)
		if scanErr := rows.Scan(&change.ID, &change.EquipmentID, &previous, &next, &change.Reason, &change.Actor, &change.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan equipment status change: %w", scanErr)
		}
		change.PreviousStatus = domain.EquipmentStatus(previous)
		change.NewStatus = domain.EquipmentStatus(next)
		changes = append(changes, change)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate equipment status history: %w", rowsErr)
	}
	return changes, nil
}

func (r *equipmentHistoryRepository) AppendLog(ctx context.Context, entry domain.EquipmentLog) (domain.EquipmentLog, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	err := r.conn.QueryRow(ctx,
		`INSERT INTO equipos_logs (id, equipo_id, accion, detalle, usuario)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		entry.ID, entry.EquipmentID, entry.Action, entry.Detail, entry.Actor,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return domain.EquipmentLog{}, fmt.Errorf("failed to append equipment log: %w", err)
	}
	return entry, nil
}

func (r *equipmentHistoryRepository) ListLogs(ctx context.Context, equipmentID uuid.UUID) ([]domain.EquipmentLog, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT id, equipo_id, accion, detalle, usuario, created_at
		 FROM equipos_logs
		 WHERE equipo_id = $1
		 ORDER BY created_at DESC`,
		equipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.EquipmentLog{}
	for rows.Next() {
		var entry domain.EquipmentLog
		if scanErr := rows.Scan(&entry.ID, &entry.EquipmentID, &entry.Action, &entry.Detail, &entry.Actor, &entry.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan equipment log: %w", scanErr)
		}
		entries = append(entries, entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate equipment logs: %w", rowsErr)
	}
	return entries, nil
}

type catalogRepository struct {
	conn db.DBTX
}

// catalogTable guards the table name interpolated into catalog queries.
func catalogTable(kind domain.CatalogKind) (string, error) {
	for _, known := range domain.CatalogKinds {
		if kind == known {
			return pgx.Identifier{string(kind)}.Sanitize(), nil
		}
	}
	return "", fmt.Errorf("unknown catalog %q", kind)
}

func (r *catalogRepository) List(ctx context.Context, kind domain.CatalogKind) ([]domain.CatalogEntry, error) {
	table, err := catalogTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn.Query(ctx, `SELECT id, codigo, nombre FROM `+table+` ORDER BY nombre ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog %s: %w", kind, err)
	}
	defer rows.Close()

	entries := []domain.CatalogEntry{}
	for rows.Next() {
		var entry domain.CatalogEntry
		if scanErr := rows.Scan(&entry.ID, &entry.Code, &entry.Name); scanErr != nil {
			return nil, fmt.Errorf("failed to scan catalog %s: %w", kind, scanErr)
		}
		entries = append(entries, entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate catalog %s: %w", kind, rowsErr)
	}
	return entries, nil
}

func (r *catalogRepository) Create(ctx context.Context, kind domain.CatalogKind, entry domain.CatalogEntry) (domain.CatalogEntry, error) {
	table, err := catalogTable(kind)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if _, err := r.conn.Exec(ctx, `INSERT INTO `+table+` (id, codigo, nombre) VALUES ($1, $2, $3)`, entry.ID, entry.Code, entry.Name); err != nil {
		return domain.CatalogEntry{}, fmt.Errorf("failed to create %s entry: %w", kind, err)
	}
	return entry, nil
}

type annualPlanRepository struct {
	conn db.DBTX
}

func (r *annualPlanRepository) CreateBatch(ctx context.Context, activities []domain.PlanActivity) (int64, error) {
	if len(activities) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(activities))
	for _, activity := range activities {
		if activity.ID == uuid.Nil {
			activity.ID = uuid.New()
		}
		start, end := activity.StartDate, activity.EndDate
		rows = append(rows, []any{
			activity.ID,
			int32(activity.Year),
			activity.Activity,
			activity.Equipment,
			activity.Responsible,
			toPgDate(&start),
			toPgDate(&end),
			activity.SourceFile,
		})
	}

	copied, err := r.conn.CopyFrom(ctx,
		pgx.Identifier{"plan_anual_actividades"},
		[]string{"id", "anio", "actividad", "equipo", "responsable", "fecha_inicio", "fecha_termino", "archivo"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy annual plan batch: %w", err)
	}
	return copied, nil
}

func (r *annualPlanRepository) List(ctx context.Context, year int) ([]domain.PlanActivity, error) {
	query := `SELECT id, anio, actividad, equipo, responsable, fecha_inicio, fecha_termino, archivo, created_at
		 FROM plan_anual_actividades`
	args := []any{}
	if year > 0 {
		query += ` WHERE anio = $1`
		args = append(args, year)
	}
	query += ` ORDER BY fecha_inicio ASC, actividad ASC`

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list annual plan: %w", err)
	}
	defer rows.Close()

	activities := []domain.PlanActivity{}
	for rows.Next() {
		var (
			activity domain.PlanActivity
			planYear int32
			start    time.Time
			end      time.Time
		)
		if scanErr := rows.Scan(
			&activity.ID, &planYear, &activity.Activity, &activity.Equipment, &activity.Responsible,
			&start, &end, &activity.SourceFile, &activity.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan annual plan activity: %w", scanErr)
		}
		activity.Year = int(planYear)
		activity.StartDate = start
		activity.EndDate = end
		activities = append(activities, activity)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate annual plan: %w", rowsErr)
	}
	return activities, nil
}
