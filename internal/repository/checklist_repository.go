package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/maintops/internal/db"
	"github.com/rpattn/maintops/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const checklistColumns = `id, orden_id, posicion, descripcion, requerido, completado, completado_at, notas, created_at, updated_at`

type checklistRepository struct {
	conn db.DBTX
}

func (r *checklistRepository) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.ChecklistItem, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT `+checklistColumns+` FROM ordenes_trabajo_checklist WHERE orden_id = $1 ORDER BY posicion ASC`,
		workOrderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}
	defer rows.Close()

	items := []domain.ChecklistItem{}
	for rows.Next() {
		item, scanErr := scanChecklistItem(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", scanErr)
		}
		items = append(items, item)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate checklist items: %w", rowsErr)
	}
	return items, nil
}

func (r *checklistRepository) InsertMissing(ctx context.Context, items []domain.ChecklistItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		id := item.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(
			`INSERT INTO ordenes_trabajo_checklist (id, orden_id, posicion, descripcion, requerido)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (orden_id, posicion) DO NOTHING`,
			id, item.WorkOrderID, item.Position, item.Description, item.Required,
		)
	}

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin checklist insert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range items {
		tag, execErr := results.Exec()
		if execErr != nil {
			results.Close()
			return 0, fmt.Errorf("failed to insert checklist item: %w", execErr)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close checklist batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit checklist insert: %w", err)
	}
	return inserted, nil
}

func (r *checklistRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ChecklistItem, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+checklistColumns+` FROM ordenes_trabajo_checklist WHERE id = $1`, id)
	item, err := scanChecklistItem(row)
	if err != nil {
		return domain.ChecklistItem{}, fmt.Errorf("failed to get checklist item %s: %w", id, notFound(err))
	}
	return item, nil
}

func (r *checklistRepository) SetCompleted(ctx context.Context, id uuid.UUID, completed bool, at *time.Time) (domain.ChecklistItem, error) {
	row := r.conn.QueryRow(ctx,
		`UPDATE ordenes_trabajo_checklist
		 SET completado = $2, completado_at = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+checklistColumns,
		id, completed, toPgTimestamptz(at),
	)
	item, err := scanChecklistItem(row)
	if err != nil {
		return domain.ChecklistItem{}, fmt.Errorf("failed to update checklist item %s: %w", id, notFound(err))
	}
	return item, nil
}

func (r *checklistRepository) SetNotes(ctx context.Context, id uuid.UUID, notes string) (domain.ChecklistItem, error) {
	row := r.conn.QueryRow(ctx,
		`UPDATE ordenes_trabajo_checklist
		 SET notas = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+checklistColumns,
		id, notes,
	)
	item, err := scanChecklistItem(row)
	if err != nil {
		return domain.ChecklistItem{}, fmt.Errorf("failed to update checklist notes %s: %w", id, notFound(err))
	}
	return item, nil
}

func scanChecklistItem(row pgx.Row) (domain.ChecklistItem, error) {
	var (
		item        domain.ChecklistItem
		completedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&item.ID,
		&item.WorkOrderID,
		&item.Position,
		&item.Description,
		&item.Required,
		&item.Completed,
		&completedAt,
		&item.Notes,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return domain.ChecklistItem{}, err
	}
	item.CompletedAt = fromPgTimestamptz(completedAt)
	return item, nil
}

type observationRepository struct {
	conn db.DBTX
}

func (r *observationRepository) Create(ctx context.Context, observation domain.Observation) (domain.Observation, error) {
	if observation.ID == uuid.Nil {
		observation.ID = uuid.New()
	}
	err := r.conn.QueryRow(ctx,
		`INSERT INTO ordenes_trabajo_observaciones (id, orden_id, tipo, texto, autor)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		observation.ID, observation.WorkOrderID, string(observation.Kind), observation.Text, observation.Author,
	).Scan(&observation.CreatedAt)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("failed to create observation: %w", err)
	}
	return observation, nil
}

func (r *observationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM ordenes_trabajo_observaciones WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete observation %s: %w", id, err)
	}
	return requireAffected(tag.RowsAffected())
}

func (r *observationRepository) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.Observation, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT id, orden_id, tipo, texto, autor, created_at
		 FROM ordenes_trabajo_observaciones
		 WHERE orden_id = $1
		 ORDER BY created_at DESC`,
		workOrderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer rows.Close()

	observations := []domain.Observation{}
	for rows.Next() {
		var (
			observation domain.Observation
			kind        string
		)
		if scanErr := rows.Scan(
			&observation.ID,
			&observation.WorkOrderID,
			&kind,
			&observation.Text,
			&observation.Author,
			&observation.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", scanErr)
		}
		observation.Kind = domain.ObservationKind(kind)
		observations = append(observations, observation)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate observations: %w", rowsErr)
	}
	return observations, nil
}

type photoRepository struct {
	conn db.DBTX
}

func (r *photoRepository) Create(ctx context.Context, photo domain.Photo) (domain.Photo, error) {
	if photo.ID == uuid.Nil {
		photo.ID = uuid.New()
	}
	err := r.conn.QueryRow(ctx,
		`INSERT INTO ordenes_trabajo_fotos (id, orden_id, ruta, descripcion)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		photo.ID, photo.WorkOrderID, photo.Path, photo.Caption,
	).Scan(&photo.CreatedAt)
	if err != nil {
		return domain.Photo{}, fmt.Errorf("failed to create photo reference: %w", err)
	}
	return photo, nil
}

func (r *photoRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Photo, error) {
	var photo domain.Photo
	err := r.conn.QueryRow(ctx,
		`SELECT id, orden_id, ruta, descripcion, created_at FROM ordenes_trabajo_fotos WHERE id = $1`,
		id,
	).Scan(&photo.ID, &photo.WorkOrderID, &photo.Path, &photo.Caption, &photo.CreatedAt)
	if err != nil {
		return domain.Photo{}, fmt.Errorf("failed to get photo %s: %w", id, notFound(err))
	}
	return photo, nil
}

func (r *photoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM ordenes_trabajo_fotos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo %s: %w", id, err)
	}
	return requireAffected(tag.RowsAffected())
}

func (r *photoRepository) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.Photo, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT id, orden_id, ruta, descripcion, created_at
		 FROM ordenes_trabajo_fotos
		 WHERE orden_id = $1
		 ORDER BY created_at ASC`,
		workOrderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	photos := []domain.Photo{}
	for rows.Next() {
		var photo domain.Photo
		if scanErr := rows.Scan(&photo.ID, &photo.WorkOrderID, &photo.Path, &photo.Caption, &photo.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", scanErr)
		}
		photos = append(photos, photo)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate photos: %w", rowsErr)
	}
	return photos, nil
}
