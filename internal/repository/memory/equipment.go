package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository"
)

type equipment struct{ s *Store }

func (r equipment) segmentName(item domain.Equipment) string {
	if item.SegmentID == nil {
		return ""
	}
	for _, entry := range (*r.s.data).catalogs[domain.CatalogSegments] {
		if entry.ID == *item.SegmentID {
			return entry.Name
		}
	}
	return ""
}

func (r equipment) insert(item domain.Equipment, now time.Time) domain.Equipment {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Status == "" {
		item.Status = domain.EquipmentOperational
	}
	item.CreatedAt, item.UpdatedAt = now, now
	item.SegmentName = ""
	(*r.s.data).equipment[item.ID] = item
	item.SegmentName = r.segmentName(item)
	return item
}

func (r equipment) Create(ctx context.Context, item domain.Equipment) (domain.Equipment, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.insert(item, r.s.now()), nil
}

func (r equipment) CreateBatch(ctx context.Context, items []domain.Equipment) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpEquipmentBatch); err != nil {
		return 0, err
	}
	now := r.s.now()
	for _, item := range items {
		r.insert(item, now)
	}
	return int64(len(items)), nil
}

func (r equipment) GetByID(ctx context.Context, id uuid.UUID) (domain.Equipment, error) {
	r.s.lock()
	defer r.s.unlock()
	item, ok := (*r.s.data).equipment[id]
	if !ok {
		return domain.Equipment{}, notFound("equipment", id)
	}
	item.SegmentName = r.segmentName(item)
	return item, nil
}

func (r equipment) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Equipment, error) {
	r.s.lock()
	defer r.s.unlock()
	out := make([]domain.Equipment, 0, len(ids))
	for _, id := range ids {
		if item, ok := (*r.s.data).equipment[id]; ok {
			item.SegmentName = r.segmentName(item)
			out = append(out, item)
		}
	}
	return out, nil
}

func (r equipment) List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.Equipment, int, error) {
	r.s.lock()
	defer r.s.unlock()
	search := strings.TrimSpace(filter.Search)
	matched := []domain.Equipment{}
	for _, item := range (*r.s.data).equipment {
		if filter.Type != "" && item.Type != filter.Type {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.SegmentID != nil && (item.SegmentID == nil || *item.SegmentID != *filter.SegmentID) {
			continue
		}
		if search != "" && !containsFold(item.Name, search) && !containsFold(item.SerialNumber, search) &&
			!containsFold(item.Brand, search) && !containsFold(item.Model, search) {
			continue
		}
		item.SegmentName = r.segmentName(item)
		matched = append(matched, item)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name == matched[j].Name {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].Name < matched[j].Name
	})
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r equipment) Update(ctx context.Context, item domain.Equipment) (domain.Equipment, error) {
	r.s.lock()
	defer r.s.unlock()
	existing, ok := (*r.s.data).equipment[item.ID]
	if !ok {
		return domain.Equipment{}, notFound("equipment", item.ID)
	}
	item.Status = existing.Status
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = r.s.now()
	item.SegmentName = ""
	(*r.s.data).equipment[item.ID] = item
	item.SegmentName = r.segmentName(item)
	return item, nil
}

func (r equipment) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.EquipmentStatus) error {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpEquipmentStatus); err != nil {
		return err
	}
	item, ok := (*r.s.data).equipment[id]
	if !ok {
		return notFound("equipment", id)
	}
	item.Status = status
	item.UpdatedAt = r.s.now()
	(*r.s.data).equipment[id] = item
	return nil
}

func (r equipment) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := (*r.s.data).equipment[id]; !ok {
		return notFound("equipment", id)
	}
	delete((*r.s.data).equipment, id)
	return nil
}

type equipmentHistory struct{ s *Store }

func (r equipmentHistory) AppendStatusChange(ctx context.Context, change domain.EquipmentStatusChange) (domain.EquipmentStatusChange, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpEquipmentHistory); err != nil {
		return domain.EquipmentStatusChange{}, err
	}
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	change.CreatedAt = r.s.now()
	(*r.s.data).statusChanges = append((*r.s.data).statusChanges, change)
	return change, nil
}

func (r equipmentHistory) ListStatusChanges(ctx context.Context, equipmentID uuid.UUID) ([]domain.EquipmentStatusChange, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []domain.EquipmentStatusChange{}
	changes := (*r.s.data).statusChanges
	for i := len(changes) - 1; i >= 0; i-- {
		if changes[i].EquipmentID == equipmentID {
			out = append(out, changes[i])
		}
	}
	return out, nil
}

func (r equipmentHistory) AppendLog(ctx context.Context, entry domain.EquipmentLog) (domain.EquipmentLog, error) {
	r.s.lock()
	defer r.s.unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = r.s.now()
	(*r.s.data).equipmentLogs = append((*r.s.data).equipmentLogs, entry)
	return entry, nil
}

func (r equipmentHistory) ListLogs(ctx context.Context, equipmentID uuid.UUID) ([]domain.EquipmentLog, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []domain.EquipmentLog{}
	logs := (*r.s.data).equipmentLogs
	for i := len(logs) - 1; i >= 0; i-- {
		if logs[i].EquipmentID == equipmentID {
			out = append(out, logs[i])
		}
	}
	return out, nil
}

type catalogs struct{ s *Store }

func (r catalogs) List(ctx context.Context, kind domain.CatalogKind) ([]domain.CatalogEntry, error) {
	r.s.lock()
	defer r.s.unlock()
	if _, err := domain.ParseCatalogKind(string(kind)); err != nil {
		return nil, err
	}
	out := append([]domain.CatalogEntry{}, (*r.s.data).catalogs[kind]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r catalogs) Create(ctx context.Context, kind domain.CatalogKind, entry domain.CatalogEntry) (domain.CatalogEntry, error) {
	r.s.lock()
	defer r.s.unlock()
	if _, err := domain.ParseCatalogKind(string(kind)); err != nil {
		return domain.CatalogEntry{}, err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	(*r.s.data).catalogs[kind] = append((*r.s.data).catalogs[kind], entry)
	return entry, nil
}

type personnel struct{ s *Store }

func (r personnel) withRole(person domain.Person) domain.Person {
	person.Role = (*r.s.data).roles[person.ID]
	return person
}

func (r personnel) Create(ctx context.Context, person domain.Person) (domain.Person, error) {
	r.s.lock()
	defer r.s.unlock()
	if person.ID == uuid.Nil {
		person.ID = uuid.New()
	}
	now := r.s.now()
	person.CreatedAt, person.UpdatedAt = now, now
	person.Role = ""
	(*r.s.data).personnel[person.ID] = person
	return r.withRole(person), nil
}

func (r personnel) GetByID(ctx context.Context, id uuid.UUID) (domain.Person, error) {
	r.s.lock()
	defer r.s.unlock()
	person, ok := (*r.s.data).personnel[id]
	if !ok {
		return domain.Person{}, notFound("person", id)
	}
	return r.withRole(person), nil
}

func (r personnel) List(ctx context.Context, activeOnly bool) ([]domain.Person, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []domain.Person{}
	for _, person := range (*r.s.data).personnel {
		if activeOnly && !person.Active {
			continue
		}
		out = append(out, r.withRole(person))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r personnel) Update(ctx context.Context, person domain.Person) (domain.Person, error) {
	r.s.lock()
	defer r.s.unlock()
	existing, ok := (*r.s.data).personnel[person.ID]
	if !ok {
		return domain.Person{}, notFound("person", person.ID)
	}
	person.CreatedAt = existing.CreatedAt
	person.UpdatedAt = r.s.now()
	person.Role = ""
	(*r.s.data).personnel[person.ID] = person
	return r.withRole(person), nil
}

func (r personnel) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.s.lock()
	defer r.s.unlock()
	person, ok := (*r.s.data).personnel[id]
	if !ok {
		return notFound("person", id)
	}
	person.Active = active
	person.UpdatedAt = r.s.now()
	(*r.s.data).personnel[id] = person
	return nil
}

func (r personnel) SetRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpPersonnelSetRole); err != nil {
		return err
	}
	(*r.s.data).roles[id] = role
	return nil
}

func (r personnel) GetRole(ctx context.Context, id uuid.UUID) (domain.Role, error) {
	r.s.lock()
	defer r.s.unlock()
	role, ok := (*r.s.data).roles[id]
	if !ok {
		return "", fmt.Errorf("role for %s: %w", id, repository.ErrNotFound)
	}
	return role, nil
}

type importLogs struct{ s *Store }

func (r importLogs) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpImportLogRecord); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = r.s.now()
	(*r.s.data).importLogs = append((*r.s.data).importLogs, entry)
	return nil
}

func (r importLogs) List(ctx context.Context, filter repository.ImportLogFilter) ([]domain.ImportLogEntry, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []domain.ImportLogEntry{}
	logs := (*r.s.data).importLogs
	for i := len(logs) - 1; i >= 0; i-- {
		entry := logs[i]
		if filter.Kind != "" && entry.Kind != filter.Kind {
			continue
		}
		if filter.FileName != "" && entry.FileName != filter.FileName {
			continue
		}
		out = append(out, entry)
	}
	return page(out, filter.Limit, filter.Offset), nil
}

type annualPlans struct{ s *Store }

func (r annualPlans) CreateBatch(ctx context.Context, activities []domain.PlanActivity) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.fail(OpAnnualPlanBatch); err != nil {
		return 0, err
	}
	now := r.s.now()
	for _, activity := range activities {
		if activity.ID == uuid.Nil {
			activity.ID = uuid.New()
		}
		activity.CreatedAt = now
		(*r.s.data).annualPlan = append((*r.s.data).annualPlan, activity)
	}
	return int64(len(activities)), nil
}

func (r annualPlans) List(ctx context.Context, year int) ([]domain.PlanActivity, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []domain.PlanActivity{}
	for _, activity := range (*r.s.data).annualPlan {
		if year != 0 && activity.Year != year {
			continue
		}
		out = append(out, activity)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].Activity < out[j].Activity
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

type reports struct{ s *Store }

func (r reports) Dashboard(ctx context.Context, now time.Time) (domain.Dashboard, error) {
	r.s.lock()
	defer r.s.unlock()
	data := *r.s.data
	dashboard := domain.Dashboard{
		WorkOrdersByState: map[domain.WorkOrderState]int{},
		EquipmentByStatus: map[domain.EquipmentStatus]int{},
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekEnd := now.Add(7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	var (
		totalHours float64
		timed      int
	)
	for _, wo := range data.workOrders {
		dashboard.WorkOrdersByState[wo.State]++
		if !wo.State.IsTerminal() && !wo.ScheduledDate.Before(now) && wo.ScheduledDate.Before(weekEnd) {
			dashboard.ScheduledNextWeek++
		}
		if wo.State != domain.StateCompleted {
			continue
		}
		if wo.StartTime != nil && wo.EndTime != nil {
			totalHours += wo.EndTime.Sub(*wo.StartTime).Hours()
			timed++
		}
		if wo.EndTime != nil && !wo.EndTime.Before(monthAgo) {
			dashboard.CompletedLast30Days++
		}
	}
	if timed > 0 {
		dashboard.AverageCompletionHours = totalHours / float64(timed)
	}
	for _, item := range data.equipment {
		dashboard.EquipmentByStatus[item.Status]++
		if item.NextMaintenance != nil && item.NextMaintenance.Before(today) && item.Status != domain.EquipmentDecommissioned {
			dashboard.OverdueMaintenance++
		}
	}
	return dashboard, nil
}
