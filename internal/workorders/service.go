// Package workorders owns the work order lifecycle: creation, state
// transitions, manual edits, checklist provisioning, observations and photos.
// Every accepted mutation of a work order writes exactly one history row in the
// same transaction as the update.
package workorders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/checklist"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/metrics"
	"github.com/rpattn/maintops/internal/repository"
	"github.com/rpattn/maintops/internal/storage"
	"github.com/rpattn/maintops/internal/transition"
)

// ErrNoChanges is returned by Edit when the patch leaves every field as it was.
var ErrNoChanges = errors.New("no changes were made")

// Service coordinates work order persistence.
type Service struct {
	store     repository.Store
	templates *checklist.Catalog
	blobs     storage.BlobStore
	metrics   *metrics.Collector
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTemplates overrides the embedded checklist templates.
func WithTemplates(catalog *checklist.Catalog) Option {
	return func(s *Service) { s.templates = catalog }
}

// WithBlobStore sets the photo storage backend.
func WithBlobStore(blobs storage.BlobStore) Option {
	return func(s *Service) { s.blobs = blobs }
}

// WithMetrics records transitions and edits on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Service) { s.metrics = collector }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a work order service.
func NewService(store repository.Store, opts ...Option) (*Service, error) {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.templates == nil {
		catalog, err := checklist.DefaultCatalog()
		if err != nil {
			return nil, fmt.Errorf("failed to load checklist templates: %w", err)
		}
		s.templates = catalog
	}
	return s, nil
}

// CreateInput carries the fields accepted when creating a work order.
type CreateInput struct {
	ScheduledDate   time.Time  `json:"scheduled_date"`
	Site            string     `json:"site"`
	Segment         string     `json:"segment"`
	Location        string     `json:"location"`
	EquipmentID     *uuid.UUID `json:"equipment_id,omitempty"`
	EquipmentType   string     `json:"equipment_type"`
	MaintenanceType string     `json:"maintenance_type"`
	Frequency       string     `json:"frequency"`
	Provider        string     `json:"provider"`
	Criticality     string     `json:"criticality"`
	Technician      string     `json:"technician"`
	Description     string     `json:"description"`
	Observations    string     `json:"observations"`
}

// TransitionResult is returned by every state change.
type TransitionResult struct {
	WorkOrder domain.WorkOrder     `json:"work_order"`
	History   domain.HistoryRecord `json:"history"`
	Warnings  []string             `json:"warnings,omitempty"`
}

// Create stores a new Planned work order, its CREACION history row and its
// provisioned checklist.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.WorkOrder, []domain.ChecklistItem, error) {
	if err := requireOperator(ctx); err != nil {
		return domain.WorkOrder{}, nil, err
	}
	wo := domain.NewWorkOrder(input.ScheduledDate, input.MaintenanceType)
	wo.Site = strings.TrimSpace(input.Site)
	wo.Segment = strings.TrimSpace(input.Segment)
	wo.Location = strings.TrimSpace(input.Location)
	wo.EquipmentID = input.EquipmentID
	wo.EquipmentType = strings.TrimSpace(input.EquipmentType)
	wo.Frequency = strings.TrimSpace(input.Frequency)
	wo.Provider = strings.TrimSpace(input.Provider)
	wo.Criticality = strings.TrimSpace(input.Criticality)
	wo.Technician = strings.TrimSpace(input.Technician)
	wo.Description = strings.TrimSpace(input.Description)
	wo.Observations = strings.TrimSpace(input.Observations)
	wo.State = domain.StatePlanned
	if err := wo.Validate(); err != nil {
		return domain.WorkOrder{}, nil, err
	}

	actor := auth.Actor(ctx)
	var (
		created domain.WorkOrder
		items   []domain.ChecklistItem
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		created, err = tx.WorkOrders().Create(ctx, wo)
		if err != nil {
			return fmt.Errorf("failed to create work order: %w", err)
		}
		_, err = tx.WorkOrderHistory().Append(ctx, domain.HistoryRecord{
			WorkOrderID: created.ID,
			Action:      domain.ActionCreate,
			NewState:    created.State,
			Description: "Work order created",
			Actor:       actor,
		})
		if err != nil {
			return fmt.Errorf("failed to record work order creation: %w", err)
		}
		items, err = s.provision(ctx, tx, created)
		return err
	})
	if err != nil {
		return domain.WorkOrder{}, nil, err
	}

	log.Printf("[WORKORDER] created %s (%s) with %d checklist items", created.ID, created.MaintenanceType, len(items))
	return created, items, nil
}

// Get returns one work order.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.WorkOrder, error) {
	return s.store.WorkOrders().GetByID(ctx, id)
}

// List returns a page of work orders and the total match count.
func (s *Service) List(ctx context.Context, filter domain.WorkOrderFilter) ([]domain.WorkOrder, int, error) {
	return s.store.WorkOrders().List(ctx, filter)
}

// History returns the audit trail of a work order, oldest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]domain.HistoryRecord, error) {
	if _, err := s.store.WorkOrders().GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.WorkOrderHistory().ListByWorkOrder(ctx, id)
}

// Start moves a Planned order into execution.
func (s *Service) Start(ctx context.Context, id uuid.UUID, note string) (TransitionResult, error) {
	return s.transition(ctx, id, domain.StateInProgress, note, domain.StatePlanned)
}

// Pause suspends an order in execution.
func (s *Service) Pause(ctx context.Context, id uuid.UUID, note string) (TransitionResult, error) {
	return s.Transition(ctx, id, domain.StatePaused, note)
}

// Resume restarts a paused order. The original start time is kept.
func (s *Service) Resume(ctx context.Context, id uuid.UUID, note string) (TransitionResult, error) {
	return s.transition(ctx, id, domain.StateInProgress, note, domain.StatePaused)
}

// Complete closes an order. note is the mandatory closing note.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, note string) (TransitionResult, error) {
	return s.Transition(ctx, id, domain.StateCompleted, note)
}

// Cancel abandons a non-terminal order.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, note string) (TransitionResult, error) {
	return s.Transition(ctx, id, domain.StateCancelled, note)
}

// Transition applies the state change rules and persists the outcome together
// with its history row. Readers may not change state.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target domain.WorkOrderState, note string) (TransitionResult, error) {
	return s.transition(ctx, id, target, note)
}

// transition is Transition restricted to the given source states when any are
// listed.
func (s *Service) transition(ctx context.Context, id uuid.UUID, target domain.WorkOrderState, note string, from ...domain.WorkOrderState) (TransitionResult, error) {
	if err := requireOperator(ctx); err != nil {
		return TransitionResult{}, err
	}

	var result TransitionResult
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.WorkOrders().GetByID(ctx, id)
		if err != nil {
			return err
		}
		decision, err := transition.Evaluate(transition.Request{
			Current: current,
			Target:  target,
			From:    from,
			Note:    note,
			Actor:   auth.Actor(ctx),
			Now:     s.now(),
		})
		if err != nil {
			return err
		}
		updated, err := tx.WorkOrders().Update(ctx, decision.WorkOrder)
		if err != nil {
			return fmt.Errorf("failed to update work order state: %w", err)
		}
		record, err := tx.WorkOrderHistory().Append(ctx, decision.History)
		if err != nil {
			return fmt.Errorf("failed to record state change: %w", err)
		}
		result = TransitionResult{WorkOrder: updated, History: record, Warnings: decision.Warnings}
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	s.metrics.RecordTransition(result.History.PreviousState, result.History.NewState)
	for _, warning := range result.Warnings {
		log.Printf("[WORKORDER] %s: %s", id, warning)
	}
	log.Printf("[WORKORDER] %s %s -> %s", id, result.History.PreviousState, result.History.NewState)
	return result, nil
}

// requireOperator admits the roles allowed to change work orders.
func requireOperator(ctx context.Context) error {
	return auth.RequireRole(ctx, domain.RoleAdmin, domain.RoleSupervisor, domain.RoleTechnician)
}

// Edit applies a manual patch. Only differing fields are recorded; an edit that
// changes nothing returns ErrNoChanges and writes nothing. A patched state goes
// through the transition rules and picks up the fields they stamp.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, patch domain.WorkOrderPatch, actor string) (TransitionResult, error) {
	if err := requireOperator(ctx); err != nil {
		return TransitionResult{}, err
	}
	if strings.TrimSpace(actor) == "" {
		actor = auth.Actor(ctx)
	}

	var result TransitionResult
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		before, err := tx.WorkOrders().GetByID(ctx, id)
		if err != nil {
			return err
		}

		after := patch.Apply(before)
		after.State = before.State
		var warnings []string
		if patch.State != nil && *patch.State != before.State {
			decision, err := transition.Evaluate(transition.Request{
				Current: after,
				Target:  *patch.State,
				Note:    patch.Note,
				Actor:   actor,
				Now:     s.now(),
			})
			if err != nil {
				return err
			}
			after = decision.WorkOrder
			warnings = decision.Warnings
		}
		if err := after.Validate(); err != nil {
			return err
		}

		changes := domain.DiffWorkOrders(before, after)
		if len(changes) == 0 {
			return ErrNoChanges
		}

		updated, err := tx.WorkOrders().Update(ctx, after)
		if err != nil {
			return fmt.Errorf("failed to update work order: %w", err)
		}
		description := strings.TrimSpace(patch.Note)
		if description == "" {
			description = "Work order modified: " + strings.Join(domain.ChangedColumns(changes), ", ")
		}
		record, err := tx.WorkOrderHistory().Append(ctx, domain.HistoryRecord{
			WorkOrderID:   id,
			Action:        domain.ActionEdit,
			PreviousState: before.State,
			NewState:      updated.State,
			Description:   description,
			Changes:       changes,
			Actor:         actor,
		})
		if err != nil {
			return fmt.Errorf("failed to record work order edit: %w", err)
		}
		result = TransitionResult{WorkOrder: updated, History: record, Warnings: warnings}
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	s.metrics.RecordEdit()
	if result.History.PreviousState != result.History.NewState {
		s.metrics.RecordTransition(result.History.PreviousState, result.History.NewState)
	}
	log.Printf("[WORKORDER] %s edited by %s: %d field(s)", id, actor, len(result.History.Changes))
	return result, nil
}

// Delete removes a work order with its checklist, observations and photos. The
// history rows are kept. Photo blobs are removed after the rows are gone.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := auth.RequireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	photos, err := s.store.Photos().ListByWorkOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list photos: %w", err)
	}
	if err := s.store.WorkOrders().Delete(ctx, id); err != nil {
		return err
	}
	for _, photo := range photos {
		s.removeBlob(ctx, photo.Path)
	}
	log.Printf("[WORKORDER] deleted %s (%d photos)", id, len(photos))
	return nil
}
