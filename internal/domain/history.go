package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryAction categorises a work order history row.
type HistoryAction string

const (
	ActionCreate   HistoryAction = "CREACION"
	ActionStart    HistoryAction = "INICIO"
	ActionPause    HistoryAction = "PAUSA"
	ActionResume   HistoryAction = "REANUDACION"
	ActionComplete HistoryAction = "FINALIZACION"
	ActionCancel   HistoryAction = "CANCELACION"
	ActionEdit     HistoryAction = "MODIFICACION"
)

// FieldChange is the before/after pair of one modified field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// HistoryRecord is an append-only audit row for a work order. Records are never
// updated or deleted.
type HistoryRecord struct {
	ID            uuid.UUID              `json:"id"`
	WorkOrderID   uuid.UUID              `json:"work_order_id"`
	Action        HistoryAction          `json:"action"`
	PreviousState WorkOrderState         `json:"previous_state"`
	NewState      WorkOrderState         `json:"new_state"`
	Description   string                 `json:"description"`
	Changes       map[string]FieldChange `json:"changes,omitempty"`
	Actor         string                 `json:"actor,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}
