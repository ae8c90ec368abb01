package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rpattn/maintops/internal/db"
)

type pgStore struct {
	conn db.DBTX
}

// NewStore returns a Store backed by a pool or an open transaction.
func NewStore(conn db.DBTX) Store {
	return &pgStore{conn: conn}
}

func (s *pgStore) WorkOrders() WorkOrderRepository { return &workOrderRepository{conn: s.conn} }

func (s *pgStore) WorkOrderHistory() WorkOrderHistoryRepository {
	return &workOrderHistoryRepository{conn: s.conn}
}

func (s *pgStore) Checklist() ChecklistRepository      { return &checklistRepository{conn: s.conn} }
func (s *pgStore) Observations() ObservationRepository { return &observationRepository{conn: s.conn} }
func (s *pgStore) Photos() PhotoRepository             { return &photoRepository{conn: s.conn} }
func (s *pgStore) Equipment() EquipmentRepository      { return &equipmentRepository{conn: s.conn} }
func (s *pgStore) Catalogs() CatalogRepository         { return &catalogRepository{conn: s.conn} }
func (s *pgStore) Personnel() PersonnelRepository      { return &personnelRepository{conn: s.conn} }
func (s *pgStore) ImportLogs() ImportLogRepository     { return &importLogRepository{conn: s.conn} }
func (s *pgStore) AnnualPlans() AnnualPlanRepository   { return &annualPlanRepository{conn: s.conn} }
func (s *pgStore) Reports() ReportRepository           { return &reportRepository{conn: s.conn} }

func (s *pgStore) EquipmentHistory() EquipmentHistoryRepository {
	return &equipmentHistoryRepository{conn: s.conn}
}

func (s *pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return db.WithTx(ctx, s.conn, func(tx pgx.Tx) error {
		return fn(&pgStore{conn: tx})
	})
}

// notFound maps pgx.ErrNoRows onto ErrNotFound so callers never import pgx.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// requireAffected turns a zero-row update or delete into ErrNotFound.
func requireAffected(rows int64) error {
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func toPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func fromPgUUID(value pgtype.UUID) *uuid.UUID {
	if !value.Valid {
		return nil
	}
	id := uuid.UUID(value.Bytes)
	return &id
}

func toPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil || t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromPgTimestamptz(value pgtype.Timestamptz) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func toPgDate(t *time.Time) pgtype.Date {
	if t == nil || t.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

func fromPgDate(value pgtype.Date) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func toPgInt4(value *int) pgtype.Int4 {
	if value == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*value), Valid: true}
}

func fromPgInt4(value pgtype.Int4) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int32)
	return &v
}

func normalizePage(limit, offset, fallback int) (int, int) {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
