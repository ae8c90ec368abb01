package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkOrder is a scheduled or ad-hoc maintenance task (OT) against a piece of
// equipment.
type WorkOrder struct {
	ID              uuid.UUID      `json:"id"`
	ScheduledDate   time.Time      `json:"scheduled_date"`
	Site            string         `json:"site"`
	Segment         string         `json:"segment"`
	Location        string         `json:"location"`
	EquipmentID     *uuid.UUID     `json:"equipment_id,omitempty"`
	EquipmentType   string         `json:"equipment_type"`
	MaintenanceType string         `json:"maintenance_type"`
	Frequency       string         `json:"frequency"`
	Provider        string         `json:"provider"`
	Criticality     string         `json:"criticality"`
	Technician      string         `json:"technician"`
	Description     string         `json:"description"`
	Observations    string         `json:"observations"`
	ClosingNote     string         `json:"closing_note,omitempty"`
	State           WorkOrderState `json:"state"`
	StartTime       *time.Time     `json:"start_time,omitempty"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewWorkOrder prepares a planned work order ready to be persisted.
func NewWorkOrder(scheduled time.Time, maintenanceType string) WorkOrder {
	now := time.Now()
	return WorkOrder{
		ID:              uuid.New(),
		ScheduledDate:   scheduled,
		MaintenanceType: strings.TrimSpace(maintenanceType),
		State:           StatePlanned,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate checks the fields every stored work order must carry.
func (w WorkOrder) Validate() error {
	var problems []string
	if w.ScheduledDate.IsZero() {
		problems = append(problems, "scheduled date is required")
	}
	if strings.TrimSpace(w.MaintenanceType) == "" {
		problems = append(problems, "maintenance type is required")
	}
	if !w.State.Valid() {
		problems = append(problems, "state "+string(w.State)+" is not a known state")
	}
	if w.EndTime != nil && w.StartTime != nil && w.EndTime.Before(*w.StartTime) {
		problems = append(problems, "end time precedes start time")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// WorkOrderFilter narrows work order listings. Zero values are ignored.
type WorkOrderFilter struct {
	State       WorkOrderState
	Technician  string
	EquipmentID *uuid.UUID
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// WorkOrderPatch carries a manual edit. Nil fields are left untouched.
type WorkOrderPatch struct {
	ScheduledDate   *time.Time      `json:"scheduled_date,omitempty"`
	Site            *string         `json:"site,omitempty"`
	Segment         *string         `json:"segment,omitempty"`
	Location        *string         `json:"location,omitempty"`
	EquipmentID     *uuid.UUID      `json:"equipment_id,omitempty"`
	EquipmentType   *string         `json:"equipment_type,omitempty"`
	MaintenanceType *string         `json:"maintenance_type,omitempty"`
	Frequency       *string         `json:"frequency,omitempty"`
	Provider        *string         `json:"provider,omitempty"`
	Criticality     *string         `json:"criticality,omitempty"`
	Technician      *string         `json:"technician,omitempty"`
	Description     *string         `json:"description,omitempty"`
	Observations    *string         `json:"observations,omitempty"`
	State           *WorkOrderState `json:"state,omitempty"`
	// Note is used as the history description and, when the edit completes the
	// order, as its closing note.
	Note string `json:"note,omitempty"`
}

// Apply returns a copy of w with every non-nil patch field applied. State is
// left to the caller, which must run it through the transition policy.
func (p WorkOrderPatch) Apply(w WorkOrder) WorkOrder {
	if p.ScheduledDate != nil {
		w.ScheduledDate = *p.ScheduledDate
	}
	if p.EquipmentID != nil {
		id := *p.EquipmentID
		w.EquipmentID = &id
	}
	setString(&w.Site, p.Site)
	setString(&w.Segment, p.Segment)
	setString(&w.Location, p.Location)
	setString(&w.EquipmentType, p.EquipmentType)
	setString(&w.MaintenanceType, p.MaintenanceType)
	setString(&w.Frequency, p.Frequency)
	setString(&w.Provider, p.Provider)
	setString(&w.Criticality, p.Criticality)
	setString(&w.Technician, p.Technician)
	setString(&w.Description, p.Description)
	setString(&w.Observations, p.Observations)
	return w
}

func setString(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}
