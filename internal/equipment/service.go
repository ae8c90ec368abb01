// Package equipment manages the equipment inventory, its status history and
// the reference catalogs equipment rows point at.
package equipment

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository"
)

// Service coordinates equipment persistence.
type Service struct {
	store repository.Store
}

// NewService creates an equipment service.
func NewService(store repository.Store) *Service {
	return &Service{store: store}
}

// Create validates and stores a new equipment record. A blank status defaults
// to operativo.
func (s *Service) Create(ctx context.Context, item domain.Equipment) (domain.Equipment, error) {
	if item.Status == "" {
		item.Status = domain.EquipmentOperational
	}
	if err := validate(item); err != nil {
		return domain.Equipment{}, err
	}
	created, err := s.store.Equipment().Create(ctx, item)
	if err != nil {
		return domain.Equipment{}, fmt.Errorf("failed to create equipment: %w", err)
	}
	s.appendLog(ctx, created.ID, "alta", "Equipment registered")
	return created, nil
}

// Get returns one equipment record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Equipment, error) {
	return s.store.Equipment().GetByID(ctx, id)
}

// List returns a filtered page of equipment and the total match count.
func (s *Service) List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.Equipment, int, error) {
	return s.store.Equipment().List(ctx, filter)
}

// Update replaces the editable fields of a record. Status changes must go
// through ChangeStatus so they are recorded.
func (s *Service) Update(ctx context.Context, item domain.Equipment) (domain.Equipment, error) {
	existing, err := s.store.Equipment().GetByID(ctx, item.ID)
	if err != nil {
		return domain.Equipment{}, err
	}
	if item.Status == "" {
		item.Status = existing.Status
	}
	if item.Status != existing.Status {
		return domain.Equipment{}, fmt.Errorf("%w: status changes must use the status endpoint", domain.ErrValidation)
	}
	if err := validate(item); err != nil {
		return domain.Equipment{}, err
	}
	updated, err := s.store.Equipment().Update(ctx, item)
	if err != nil {
		return domain.Equipment{}, fmt.Errorf("failed to update equipment: %w", err)
	}
	s.appendLog(ctx, updated.ID, "modificacion", "Equipment data updated")
	return updated, nil
}

// ChangeStatus moves equipment to a new status. The update, the status
// history row and the log entry commit together.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, rawStatus, reason, actor string) (domain.EquipmentStatusChange, error) {
	if err := auth.RequireRole(ctx, domain.RoleAdmin, domain.RoleSupervisor, domain.RoleTechnician); err != nil {
		return domain.EquipmentStatusChange{}, err
	}
	status, err := domain.ParseEquipmentStatus(rawStatus)
	if err != nil {
		return domain.EquipmentStatusChange{}, err
	}
	if strings.TrimSpace(actor) == "" {
		actor = auth.Actor(ctx)
	}
	reason = strings.TrimSpace(reason)

	var change domain.EquipmentStatusChange
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.Equipment().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == status {
			return fmt.Errorf("%w: equipment is already %s", domain.ErrValidation, status)
		}
		if err := tx.Equipment().UpdateStatus(ctx, id, status); err != nil {
			return fmt.Errorf("failed to update equipment status: %w", err)
		}
		change, err = tx.EquipmentHistory().AppendStatusChange(ctx, domain.EquipmentStatusChange{
			EquipmentID:    id,
			PreviousStatus: current.Status,
			NewStatus:      status,
			Reason:         reason,
			Actor:          actor,
		})
		if err != nil {
			return fmt.Errorf("failed to record status change: %w", err)
		}
		detail := fmt.Sprintf("%s -> %s", current.Status, status)
		if reason != "" {
			detail += ": " + reason
		}
		if _, err := tx.EquipmentHistory().AppendLog(ctx, domain.EquipmentLog{
			EquipmentID: id,
			Action:      "cambio_estado",
			Detail:      detail,
			Actor:       actor,
		}); err != nil {
			return fmt.Errorf("failed to record equipment log: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.EquipmentStatusChange{}, err
	}

	log.Printf("[EQUIPMENT] %s %s -> %s by %s", id, change.PreviousStatus, change.NewStatus, actor)
	return change, nil
}

// StatusHistory lists status changes, newest first.
func (s *Service) StatusHistory(ctx context.Context, id uuid.UUID) ([]domain.EquipmentStatusChange, error) {
	if _, err := s.store.Equipment().GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.EquipmentHistory().ListStatusChanges(ctx, id)
}

// Logs lists the free-form activity log, newest first.
func (s *Service) Logs(ctx context.Context, id uuid.UUID) ([]domain.EquipmentLog, error) {
	return s.store.EquipmentHistory().ListLogs(ctx, id)
}

// Delete removes an equipment record. Admin only.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := auth.RequireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.Equipment().Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[EQUIPMENT] deleted %s", id)
	return nil
}

// Catalog lists the entries of one reference table.
func (s *Service) Catalog(ctx context.Context, rawKind string) ([]domain.CatalogEntry, error) {
	kind, err := domain.ParseCatalogKind(rawKind)
	if err != nil {
		return nil, err
	}
	return s.store.Catalogs().List(ctx, kind)
}

// AddCatalogEntry extends a reference table. Admin and supervisor only.
func (s *Service) AddCatalogEntry(ctx context.Context, rawKind string, entry domain.CatalogEntry) (domain.CatalogEntry, error) {
	if err := auth.RequireRole(ctx, domain.RoleAdmin, domain.RoleSupervisor); err != nil {
		return domain.CatalogEntry{}, err
	}
	kind, err := domain.ParseCatalogKind(rawKind)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	entry.Code = strings.TrimSpace(entry.Code)
	entry.Name = strings.TrimSpace(entry.Name)
	if entry.Name == "" {
		return domain.CatalogEntry{}, fmt.Errorf("%w: catalog entry name is required", domain.ErrValidation)
	}
	return s.store.Catalogs().Create(ctx, kind, entry)
}

// Catalogs loads every reference table into lookup indexes.
func (s *Service) Catalogs(ctx context.Context) (map[domain.CatalogKind]domain.Catalog, error) {
	return LoadCatalogs(ctx, s.store.Catalogs())
}

// LoadCatalogs fetches every catalog kind from repo.
func LoadCatalogs(ctx context.Context, repo repository.CatalogRepository) (map[domain.CatalogKind]domain.Catalog, error) {
	out := make(map[domain.CatalogKind]domain.Catalog, len(domain.CatalogKinds))
	for _, kind := range domain.CatalogKinds {
		entries, err := repo.List(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog %s: %w", kind, err)
		}
		out[kind] = domain.NewCatalog(kind, entries)
	}
	return out, nil
}

func (s *Service) appendLog(ctx context.Context, id uuid.UUID, action, detail string) {
	_, err := s.store.EquipmentHistory().AppendLog(ctx, domain.EquipmentLog{
		EquipmentID: id,
		Action:      action,
		Detail:      detail,
		Actor:       auth.Actor(ctx),
	})
	if err != nil {
		log.Printf("[EQUIPMENT] failed to log %s for %s: %v", action, id, err)
	}
}

func validate(item domain.Equipment) error {
	var problems []string
	if strings.TrimSpace(item.Name) == "" {
		problems = append(problems, "name is required")
	}
	if _, err := domain.ParseEquipmentType(string(item.Type)); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := domain.ParseEquipmentStatus(string(item.Status)); err != nil {
		problems = append(problems, err.Error())
	}
	if item.ManufactureYear != 0 && (item.ManufactureYear < 1000 || item.ManufactureYear > 9999) {
		problems = append(problems, "manufacture year must have 4 digits")
	}
	if item.UsefulLifeYears != nil && *item.UsefulLifeYears < 0 {
		problems = append(problems, "useful life must not be negative")
	}
	if item.NextMaintenance != nil && item.NextMaintenance.Before(time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)) {
		problems = append(problems, "next maintenance date is out of range")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
