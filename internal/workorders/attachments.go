package workorders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository"
)

// ErrStorageUnavailable is returned by photo operations when no blob store is
// configured.
var ErrStorageUnavailable = errors.New("photo storage is not configured")

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
}

// ProvisionChecklist creates the checklist of a work order from its templates.
// It is idempotent: an order that already has items gets them back unchanged.
func (s *Service) ProvisionChecklist(ctx context.Context, workOrderID uuid.UUID) ([]domain.ChecklistItem, error) {
	if err := requireOperator(ctx); err != nil {
		return nil, err
	}
	var items []domain.ChecklistItem
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		wo, err := tx.WorkOrders().GetByID(ctx, workOrderID)
		if err != nil {
			return err
		}
		items, err = s.provision(ctx, tx, wo)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) provision(ctx context.Context, tx repository.Store, wo domain.WorkOrder) ([]domain.ChecklistItem, error) {
	existing, err := tx.Checklist().ListByWorkOrder(ctx, wo.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checklist: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	var equipment *domain.Equipment
	if wo.EquipmentID != nil {
		linked, err := tx.Equipment().GetByID(ctx, *wo.EquipmentID)
		switch {
		case err == nil:
			equipment = &linked
		case errors.Is(err, repository.ErrNotFound):
			log.Printf("[WORKORDER] %s references missing equipment %s; resolving template by keywords", wo.ID, *wo.EquipmentID)
		default:
			return nil, fmt.Errorf("failed to load linked equipment: %w", err)
		}
	}

	resolution, planned := s.templates.ItemsFor(wo, equipment)
	inserted, err := tx.Checklist().InsertMissing(ctx, planned)
	if err != nil {
		return nil, fmt.Errorf("failed to provision checklist: %w", err)
	}
	log.Printf("[WORKORDER] %s checklist provisioned from %s template %q (%d items)", wo.ID, resolution.Source, resolution.Type, inserted)

	return tx.Checklist().ListByWorkOrder(ctx, wo.ID)
}

// Checklist returns the stored checklist. It never provisions.
func (s *Service) Checklist(ctx context.Context, workOrderID uuid.UUID) ([]domain.ChecklistItem, error) {
	if _, err := s.store.WorkOrders().GetByID(ctx, workOrderID); err != nil {
		return nil, err
	}
	return s.store.Checklist().ListByWorkOrder(ctx, workOrderID)
}

// SetChecklistItemCompleted marks an item done or pending, stamping or clearing
// its completion time.
func (s *Service) SetChecklistItemCompleted(ctx context.Context, itemID uuid.UUID, completed bool) (domain.ChecklistItem, error) {
	if err := requireOperator(ctx); err != nil {
		return domain.ChecklistItem{}, err
	}
	if !completed {
		return s.store.Checklist().SetCompleted(ctx, itemID, false, nil)
	}
	at := s.now()
	return s.store.Checklist().SetCompleted(ctx, itemID, true, &at)
}

// SetChecklistItemNotes saves the free-text notes of one item.
func (s *Service) SetChecklistItemNotes(ctx context.Context, itemID uuid.UUID, notes string) (domain.ChecklistItem, error) {
	if err := requireOperator(ctx); err != nil {
		return domain.ChecklistItem{}, err
	}
	return s.store.Checklist().SetNotes(ctx, itemID, strings.TrimSpace(notes))
}

// AddObservation attaches a note of the given kind to a work order.
func (s *Service) AddObservation(ctx context.Context, workOrderID uuid.UUID, kind, text string) (domain.Observation, error) {
	if err := requireOperator(ctx); err != nil {
		return domain.Observation{}, err
	}
	parsedKind, err := domain.ParseObservationKind(kind)
	if err != nil {
		return domain.Observation{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Observation{}, fmt.Errorf("%w: observation text is required", domain.ErrValidation)
	}
	if _, err := s.store.WorkOrders().GetByID(ctx, workOrderID); err != nil {
		return domain.Observation{}, err
	}
	return s.store.Observations().Create(ctx, domain.Observation{
		WorkOrderID: workOrderID,
		Kind:        parsedKind,
		Text:        text,
		Author:      auth.Actor(ctx),
	})
}

// DeleteObservation removes one observation.
func (s *Service) DeleteObservation(ctx context.Context, id uuid.UUID) error {
	if err := requireOperator(ctx); err != nil {
		return err
	}
	return s.store.Observations().Delete(ctx, id)
}

// Observations lists a work order's observations, newest first.
func (s *Service) Observations(ctx context.Context, workOrderID uuid.UUID) ([]domain.Observation, error) {
	return s.store.Observations().ListByWorkOrder(ctx, workOrderID)
}

// UploadPhoto stores the image under {workOrderID}/{unix nanos}{ext} and then
// records the reference. A failed insert removes the stored blob again.
func (s *Service) UploadPhoto(ctx context.Context, workOrderID uuid.UUID, filename string, body io.Reader, caption string) (domain.Photo, error) {
	if err := requireOperator(ctx); err != nil {
		return domain.Photo{}, err
	}
	if s.blobs == nil {
		return domain.Photo{}, ErrStorageUnavailable
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !photoExtensions[ext] {
		return domain.Photo{}, fmt.Errorf("%w: unsupported image type %q", domain.ErrValidation, ext)
	}
	if _, err := s.store.WorkOrders().GetByID(ctx, workOrderID); err != nil {
		return domain.Photo{}, err
	}

	key := fmt.Sprintf("%s/%d%s", workOrderID, s.now().UnixNano(), ext)
	if err := s.blobs.Put(ctx, key, body); err != nil {
		return domain.Photo{}, fmt.Errorf("failed to store photo: %w", err)
	}

	photo, err := s.store.Photos().Create(ctx, domain.Photo{
		WorkOrderID: workOrderID,
		Path:        key,
		Caption:     strings.TrimSpace(caption),
	})
	if err != nil {
		if deleteErr := s.blobs.Delete(ctx, key); deleteErr != nil {
			log.Printf("[STORAGE] failed to remove orphaned photo %s: %v", key, deleteErr)
		}
		return domain.Photo{}, fmt.Errorf("failed to save photo reference: %w", err)
	}

	photo.URL = s.blobs.URL(photo.Path)
	log.Printf("[WORKORDER] %s photo stored at %s", workOrderID, key)
	return photo, nil
}

// DeletePhoto removes the reference and then the blob. A blob that cannot be
// removed is reported after the reference is already gone.
func (s *Service) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	if err := requireOperator(ctx); err != nil {
		return err
	}
	photo, err := s.store.Photos().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Photos().Delete(ctx, id); err != nil {
		return err
	}
	if s.blobs == nil {
		return nil
	}
	if err := s.blobs.Delete(ctx, photo.Path); err != nil {
		log.Printf("[STORAGE] failed to remove photo blob %s: %v", photo.Path, err)
		return fmt.Errorf("photo reference removed but blob cleanup failed: %w", err)
	}
	return nil
}

// Photos lists a work order's photos with their public URLs.
func (s *Service) Photos(ctx context.Context, workOrderID uuid.UUID) ([]domain.Photo, error) {
	photos, err := s.store.Photos().ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if s.blobs != nil {
		for i := range photos {
			photos[i].URL = s.blobs.URL(photos[i].Path)
		}
	}
	return photos, nil
}

func (s *Service) removeBlob(ctx context.Context, key string) {
	if s.blobs == nil {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		log.Printf("[STORAGE] failed to remove photo blob %s: %v", key, err)
	}
}
