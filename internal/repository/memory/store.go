// Package memory is an in-process implementation of repository.Store. It backs
// the serve command's --memory mode and the service tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository"
)

// Operation names accepted by FailOn.
const (
	OpWorkOrderCreate   = "work_orders.create"
	OpWorkOrderUpdate   = "work_orders.update"
	OpHistoryAppend     = "history.append"
	OpChecklistInsert   = "checklist.insert"
	OpChecklistUpdate   = "checklist.update"
	OpPhotoCreate       = "photos.create"
	OpEquipmentBatch    = "equipment.create_batch"
	OpEquipmentStatus   = "equipment.update_status"
	OpEquipmentHistory  = "equipment_history.append"
	OpAnnualPlanBatch   = "annual_plans.create_batch"
	OpImportLogRecord   = "import_logs.record"
	OpPersonnelSetRole  = "personnel.set_role"
	OpObservationCreate = "observations.create"
)

type state struct {
	workOrders    map[uuid.UUID]domain.WorkOrder
	history       []domain.HistoryRecord
	checklist     map[uuid.UUID]domain.ChecklistItem
	observations  map[uuid.UUID]domain.Observation
	photos        map[uuid.UUID]domain.Photo
	equipment     map[uuid.UUID]domain.Equipment
	statusChanges []domain.EquipmentStatusChange
	equipmentLogs []domain.EquipmentLog
	catalogs      map[domain.CatalogKind][]domain.CatalogEntry
	personnel     map[uuid.UUID]domain.Person
	roles         map[uuid.UUID]domain.Role
	importLogs    []domain.ImportLogEntry
	annualPlan    []domain.PlanActivity
}

func newState() *state {
	return &state{
		workOrders:   map[uuid.UUID]domain.WorkOrder{},
		checklist:    map[uuid.UUID]domain.ChecklistItem{},
		observations: map[uuid.UUID]domain.Observation{},
		photos:       map[uuid.UUID]domain.Photo{},
		equipment:    map[uuid.UUID]domain.Equipment{},
		catalogs:     map[domain.CatalogKind][]domain.CatalogEntry{},
		personnel:    map[uuid.UUID]domain.Person{},
		roles:        map[uuid.UUID]domain.Role{},
	}
}

func (s *state) clone() *state {
	out := &state{
		workOrders:    make(map[uuid.UUID]domain.WorkOrder, len(s.workOrders)),
		history:       append([]domain.HistoryRecord(nil), s.history...),
		checklist:     make(map[uuid.UUID]domain.ChecklistItem, len(s.checklist)),
		observations:  make(map[uuid.UUID]domain.Observation, len(s.observations)),
		photos:        make(map[uuid.UUID]domain.Photo, len(s.photos)),
		equipment:     make(map[uuid.UUID]domain.Equipment, len(s.equipment)),
		statusChanges: append([]domain.EquipmentStatusChange(nil), s.statusChanges...),
		equipmentLogs: append([]domain.EquipmentLog(nil), s.equipmentLogs...),
		catalogs:      make(map[domain.CatalogKind][]domain.CatalogEntry, len(s.catalogs)),
		personnel:     make(map[uuid.UUID]domain.Person, len(s.personnel)),
		roles:         make(map[uuid.UUID]domain.Role, len(s.roles)),
		importLogs:    append([]domain.ImportLogEntry(nil), s.importLogs...),
		annualPlan:    append([]domain.PlanActivity(nil), s.annualPlan...),
	}
	for k, v := range s.workOrders {
		out.workOrders[k] = v
	}
	for k, v := range s.checklist {
		out.checklist[k] = v
	}
	for k, v := range s.observations {
		out.observations[k] = v
	}
	for k, v := range s.photos {
		out.photos[k] = v
	}
	for k, v := range s.equipment {
		out.equipment[k] = v
	}
	for k, v := range s.catalogs {
		out.catalogs[k] = append([]domain.CatalogEntry(nil), v...)
	}
	for k, v := range s.personnel {
		out.personnel[k] = v
	}
	for k, v := range s.roles {
		out.roles[k] = v
	}
	return out
}

// Store is a mutex guarded in-memory repository.Store. WithTx snapshots the
// whole state and restores it when the callback fails.
type Store struct {
	mu       *sync.Mutex
	data     **state
	failures map[string]error
	now      func() time.Time
	inTx     bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	data := newState()
	return &Store{
		mu:       &sync.Mutex{},
		data:     &data,
		failures: map[string]error{},
		now:      time.Now,
	}
}

// SetClock replaces the timestamp source used for created_at columns.
func (s *Store) SetClock(now func() time.Time) {
	s.lock()
	defer s.unlock()
	s.now = now
}

// FailOn makes every later call of op return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.lock()
	defer s.unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// HistoryAppends reports how many history rows were committed.
func (s *Store) HistoryAppends() int {
	s.lock()
	defer s.unlock()
	return len((*s.data).history)
}

// ChecklistCount reports how many checklist rows exist for a work order.
func (s *Store) ChecklistCount(workOrderID uuid.UUID) int {
	s.lock()
	defer s.unlock()
	count := 0
	for _, item := range (*s.data).checklist {
		if item.WorkOrderID == workOrderID {
			count++
		}
	}
	return count
}

// SeedCatalog replaces the entries of one catalog.
func (s *Store) SeedCatalog(kind domain.CatalogKind, entries ...domain.CatalogEntry) {
	s.lock()
	defer s.unlock()
	(*s.data).catalogs[kind] = append([]domain.CatalogEntry(nil), entries...)
}

// The transaction-bound copy shares the mutex but is already holding it.
func (s *Store) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *Store) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// WithTx runs fn with exclusive access; fn's error restores the prior state.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := (*s.data).clone()
	txStore := &Store{mu: s.mu, data: s.data, failures: s.failures, now: s.now, inTx: true}
	if err := fn(txStore); err != nil {
		*s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) WorkOrders() repository.WorkOrderRepository { return workOrders{s} }
func (s *Store) WorkOrderHistory() repository.WorkOrderHistoryRepository {
	return workOrderHistory{s}
}
func (s *Store) Checklist() repository.ChecklistRepository      { return checklistItems{s} }
func (s *Store) Observations() repository.ObservationRepository { return observations{s} }
func (s *Store) Photos() repository.PhotoRepository             { return photos{s} }
func (s *Store) Equipment() repository.EquipmentRepository      { return equipment{s} }
func (s *Store) Catalogs() repository.CatalogRepository         { return catalogs{s} }
func (s *Store) Personnel() repository.PersonnelRepository      { return personnel{s} }
func (s *Store) ImportLogs() repository.ImportLogRepository     { return importLogs{s} }
func (s *Store) AnnualPlans() repository.AnnualPlanRepository   { return annualPlans{s} }
func (s *Store) Reports() repository.ReportRepository           { return reports{s} }
func (s *Store) EquipmentHistory() repository.EquipmentHistoryRepository {
	return equipmentHistory{s}
}

func notFound(kind string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", kind, id, repository.ErrNotFound)
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// cloneChanges round-trips through JSON so stored history matches what the
// Postgres jsonb column would hand back.
func cloneChanges(changes map[string]domain.FieldChange) map[string]domain.FieldChange {
	if changes == nil {
		return nil
	}
	encoded, err := json.Marshal(changes)
	if err != nil {
		return changes
	}
	var out map[string]domain.FieldChange
	if err := json.Unmarshal(encoded, &out); err != nil {
		return changes
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

type workOrders struct{ s *Store }

func (r workOrders) Create(ctx context.Context, wo domain.WorkOrder) (domain.WorkOrder, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpWorkOrderCreate); err != nil {
		return domain.WorkOrder{}, err
	}
	if wo.ID == uuid.Nil {
		wo.ID = uuid.New()
	}
	now := r.s.now()
	wo.CreatedAt, wo.UpdatedAt = now, now
	(*r.s.data).workOrders[wo.ID] = wo
	return wo, nil
}

func (r workOrders) GetByID(ctx context.Context, id uuid.UUID) (domain.WorkOrder, error) {
	r.s.lock()
	defer r.s.unlock()
	wo, ok := (*r.s.data).workOrders[id]
	if !ok {
		return domain.WorkOrder{}, notFound("work order", id)
	}
	return wo, nil
}

func (r workOrders) List(ctx context.Context, filter domain.WorkOrderFilter) ([]domain.WorkOrder, int, error) {
	r.s.lock()
	defer r.s.unlock()
	matched := []domain.WorkOrder{}
	for _, wo := range (*r.s.data).workOrders {
		if filter.State != "" && wo.State != filter.State {
			continue
		}
		if filter.Technician != "" && !strings.EqualFold(wo.Technician, filter.Technician) {
			continue
		}
		if filter.EquipmentID != nil && (wo.EquipmentID == nil || *wo.EquipmentID != *filter.EquipmentID) {
			continue
		}
		if filter.From != nil && wo.ScheduledDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !wo.ScheduledDate.Before(*filter.To) {
			continue
		}
		matched = append(matched, wo)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ScheduledDate.Equal(matched[j].ScheduledDate) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ScheduledDate.Before(matched[j].ScheduledDate)
	})
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r workOrders) Update(ctx context.Context, wo domain.WorkOrder) (domain.WorkOrder, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpWorkOrderUpdate); err != nil {
		return domain.WorkOrder{}, err
	}
	existing, ok := (*r.s.data).workOrders[wo.ID]
	if !ok {
		return domain.WorkOrder{}, notFound("work order", wo.ID)
	}
	wo.CreatedAt = existing.CreatedAt
	wo.UpdatedAt = r.s.now()
	(*r.s.data).workOrders[wo.ID] = wo
	return wo, nil
}

func (r workOrders) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.lock()
	defer r.s.unlock()
	data := *r.s.data
	if _, ok := data.workOrders[id]; !ok {
		return notFound("work order", id)
	}
	delete(data.workOrders, id)
	for key, item := range data.checklist {
		if item.WorkOrderID == id {
			delete(data.checklist, key)
		}
	}
	for key, observation := range data.observations {
		if observation.WorkOrderID == id {
			delete(data.observations, key)
		}
	}
	for key, photo := range data.photos {
		if photo.WorkOrderID == id {
			delete(data.photos, key)
		}
	}
	return nil
}

type workOrderHistory struct{ s *Store }

func (r workOrderHistory) Append(ctx context.Context, record domain.HistoryRecord) (domain.HistoryRecord, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpHistoryAppend); err != nil {
		return domain.HistoryRecord{}, err
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = r.s.now()
	record.Changes = cloneChanges(record.Changes)
	(*r.s.data).history = append((*r.s.data).history, record)
	return record, nil
}

func (r workOrderHistory) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.HistoryRecord, error) {
	r.s.lock()
	defer r.s.unlock()
	records := []domain.HistoryRecord{}
	for _, record := range (*r.s.data).history {
		if record.WorkOrderID == workOrderID {
			records = append(records, record)
		}
	}
	return records, nil
}

type checklistItems struct{ s *Store }

func (r checklistItems) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.ChecklistItem, error) {
	r.s.lock()
	defer r.s.unlock()
	items := []domain.ChecklistItem{}
	for _, item := range (*r.s.data).checklist {
		if item.WorkOrderID == workOrderID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (r checklistItems) InsertMissing(ctx context.Context, items []domain.ChecklistItem) (int, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpChecklistInsert); err != nil {
		return 0, err
	}
	data := *r.s.data
	taken := map[string]bool{}
	for _, item := range data.checklist {
		taken[fmt.Sprintf("%s/%d", item.WorkOrderID, item.Position)] = true
	}
	inserted := 0
	now := r.s.now()
	for _, item := range items {
		slot := fmt.Sprintf("%s/%d", item.WorkOrderID, item.Position)
		if taken[slot] {
			continue
		}
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.CreatedAt, item.UpdatedAt = now, now
		data.checklist[item.ID] = item
		taken[slot] = true
		inserted++
	}
	return inserted, nil
}

func (r checklistItems) GetByID(ctx context.Context, id uuid.UUID) (domain.ChecklistItem, error) {
	r.s.lock()
	defer r.s.unlock()
	item, ok := (*r.s.data).checklist[id]
	if !ok {
		return domain.ChecklistItem{}, notFound("checklist item", id)
	}
	return item, nil
}

func (r checklistItems) SetCompleted(ctx context.Context, id uuid.UUID, completed bool, at *time.Time) (domain.ChecklistItem, error) {
	return r.update(id, func(item *domain.ChecklistItem) {
		item.Completed = completed
		item.CompletedAt = at
	})
}

func (r checklistItems) SetNotes(ctx context.Context, id uuid.UUID, notes string) (domain.ChecklistItem, error) {
	return r.update(id, func(item *domain.ChecklistItem) { item.Notes = notes })
}

func (r checklistItems) update(id uuid.UUID, mutate func(*domain.ChecklistItem)) (domain.ChecklistItem, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpChecklistUpdate); err != nil {
		return domain.ChecklistItem{}, err
	}
	item, ok := (*r.s.data).checklist[id]
	if !ok {
		return domain.ChecklistItem{}, notFound("checklist item", id)
	}
	mutate(&item)
	item.UpdatedAt = r.s.now()
	(*r.s.data).checklist[id] = item
	return item, nil
}

type observations struct{ s *Store }

func (r observations) Create(ctx context.Context, observation domain.Observation) (domain.Observation, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpObservationCreate); err != nil {
		return domain.Observation{}, err
	}
	if observation.ID == uuid.Nil {
		observation.ID = uuid.New()
	}
	observation.CreatedAt = r.s.now()
	(*r.s.data).observations[observation.ID] = observation
	return observation, nil
}

func (r observations) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := (*r.s.data).observations[id]; !ok {
		return notFound("observation", id)
	}
	delete((*r.s.data).observations, id)
	return nil
}

func (r observations) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.Observation, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []domain.Observation{}
	for _, observation := range (*r.s.data).observations {
		if observation.WorkOrderID == workOrderID {
			out = append(out, observation)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type photos struct{ s *Store }

func (r photos) Create(ctx context.Context, photo domain.Photo) (domain.Photo, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpPhotoCreate); err != nil {
		return domain.Photo{}, err
	}
	if photo.ID == uuid.Nil {
		photo.ID = uuid.New()
	}
	photo.CreatedAt = r.s.now()
	(*r.s.data).photos[photo.ID] = photo
	return photo, nil
}

func (r photos) GetByID(ctx context.Context, id uuid.UUID) (domain.Photo, error) {
	r.s.lock()
	defer r.s.unlock()
	photo, ok := (*r.s.data).photos[id]
	if !ok {
		return domain.Photo{}, notFound("photo", id)
	}
	return photo, nil
}

func (r photos) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := (*r.s.data).photos[id]; !ok {
		return notFound("photo", id)
	}
	delete((*r.s.data).photos, id)
	return nil
}

func (r photos) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.Photo, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []domain.Photo{}
	for _, photo := range (*r.s.data).photos {
		if photo.WorkOrderID == workOrderID {
			out = append(out, photo)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
