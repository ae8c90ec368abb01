package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rpattn/maintops/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("record not found")

// Store groups the repositories that share one connection or transaction.
type Store interface {
	WorkOrders() WorkOrderRepository
	WorkOrderHistory() WorkOrderHistoryRepository
	Checklist() ChecklistRepository
	Observations() ObservationRepository
	Photos() PhotoRepository
	Equipment() EquipmentRepository
	EquipmentHistory() EquipmentHistoryRepository
	Catalogs() CatalogRepository
	Personnel() PersonnelRepository
	ImportLogs() ImportLogRepository
	AnnualPlans() AnnualPlanRepository
	Reports() ReportRepository

	// WithTx runs fn against a Store bound to a single transaction. An error
	// from fn rolls back every write made through that Store.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// WorkOrderRepository persists ordenes_trabajo rows.
type WorkOrderRepository interface {
	Create(ctx context.Context, wo domain.WorkOrder) (domain.WorkOrder, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.WorkOrder, error)
	List(ctx context.Context, filter domain.WorkOrderFilter) ([]domain.WorkOrder, int, error)
	Update(ctx context.Context, wo domain.WorkOrder) (domain.WorkOrder, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// WorkOrderHistoryRepository appends and reads the audit trail. There is no
// update or delete.
type WorkOrderHistoryRepository interface {
	Append(ctx context.Context, record domain.HistoryRecord) (domain.HistoryRecord, error)
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.HistoryRecord, error)
}

// ChecklistRepository persists checklist items.
type ChecklistRepository interface {
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.ChecklistItem, error)
	// InsertMissing inserts items whose (work order, position) slot is free and
	// reports how many rows were written.
	InsertMissing(ctx context.Context, items []domain.ChecklistItem) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ChecklistItem, error)
	SetCompleted(ctx context.Context, id uuid.UUID, completed bool, at *time.Time) (domain.ChecklistItem, error)
	SetNotes(ctx context.Context, id uuid.UUID, notes string) (domain.ChecklistItem, error)
}

// ObservationRepository persists observations. Observations are never edited.
type ObservationRepository interface {
	Create(ctx context.Context, observation domain.Observation) (domain.Observation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.Observation, error)
}

// PhotoRepository persists photo references.
type PhotoRepository interface {
	Create(ctx context.Context, photo domain.Photo) (domain.Photo, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Photo, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.Photo, error)
}

// EquipmentRepository persists equipos rows.
type EquipmentRepository interface {
	Create(ctx context.Context, equipment domain.Equipment) (domain.Equipment, error)
	// CreateBatch writes every row in a single COPY; either all rows land or none.
	CreateBatch(ctx context.Context, items []domain.Equipment) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Equipment, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Equipment, error)
	List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.Equipment, int, error)
	Update(ctx context.Context, equipment domain.Equipment) (domain.Equipment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.EquipmentStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// EquipmentHistoryRepository appends status history and free-form logs.
type EquipmentHistoryRepository interface {
	AppendStatusChange(ctx context.Context, change domain.EquipmentStatusChange) (domain.EquipmentStatusChange, error)
	ListStatusChanges(ctx context.Context, equipmentID uuid.UUID) ([]domain.EquipmentStatusChange, error)
	AppendLog(ctx context.Context, entry domain.EquipmentLog) (domain.EquipmentLog, error)
	ListLogs(ctx context.Context, equipmentID uuid.UUID) ([]domain.EquipmentLog, error)
}

// CatalogRepository reads and extends the reference tables.
type CatalogRepository interface {
	List(ctx context.Context, kind domain.CatalogKind) ([]domain.CatalogEntry, error)
	Create(ctx context.Context, kind domain.CatalogKind, entry domain.CatalogEntry) (domain.CatalogEntry, error)
}

// PersonnelRepository persists personal and user_roles.
type PersonnelRepository interface {
	Create(ctx context.Context, person domain.Person) (domain.Person, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Person, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Person, error)
	Update(ctx context.Context, person domain.Person) (domain.Person, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetRole(ctx context.Context, id uuid.UUID, role domain.Role) error
	GetRole(ctx context.Context, id uuid.UUID) (domain.Role, error)
}

// ImportLogRepository stores import row errors for later review.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, filter ImportLogFilter) ([]domain.ImportLogEntry, error)
}

// ImportLogFilter narrows import log listings. Empty fields are ignored.
type ImportLogFilter struct {
	Kind     domain.ImportKind
	FileName string
	Limit    int
	Offset   int
}

// AnnualPlanRepository persists imported annual plan activities.
type AnnualPlanRepository interface {
	CreateBatch(ctx context.Context, activities []domain.PlanActivity) (int64, error)
	List(ctx context.Context, year int) ([]domain.PlanActivity, error)
}

// ReportRepository computes dashboard aggregates in SQL.
type ReportRepository interface {
	Dashboard(ctx context.Context, now time.Time) (domain.Dashboard, error)
}
