package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChecklistItem is one task line of a work order checklist.
type ChecklistItem struct {
	ID          uuid.UUID  `json:"id"`
	WorkOrderID uuid.UUID  `json:"work_order_id"`
	Position    int        `json:"position"`
	Description string     `json:"description"`
	Required    bool       `json:"required"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChecklistProgress summarises completion readiness. It is informative only;
// completing a work order does not require a finished checklist.
type ChecklistProgress struct {
	Total           int  `json:"total"`
	Completed       int  `json:"completed"`
	RequiredPending int  `json:"required_pending"`
	ReadyForClosure bool `json:"ready_for_closure"`
}

// SummarizeChecklist counts completed and pending required items.
func SummarizeChecklist(items []ChecklistItem) ChecklistProgress {
	progress := ChecklistProgress{Total: len(items)}
	for _, item := range items {
		if item.Completed {
			progress.Completed++
			continue
		}
		if item.Required {
			progress.RequiredPending++
		}
	}
	progress.ReadyForClosure = progress.RequiredPending == 0
	return progress
}
