package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidEquipmentType is returned for a tipo outside the known set.
	ErrInvalidEquipmentType = errors.New("invalid equipment type")
	// ErrInvalidEquipmentStatus is returned for an estado outside the known set.
	ErrInvalidEquipmentStatus = errors.New("invalid equipment status")
)

// EquipmentType is the classification stored in equipos.tipo.
type EquipmentType string

const (
	EquipmentElectrical  EquipmentType = "electrico"
	EquipmentMechanical  EquipmentType = "mecanico"
	EquipmentElectronic  EquipmentType = "electronico"
	EquipmentMeasurement EquipmentType = "medicion"
	EquipmentOther       EquipmentType = "otros"
)

// EquipmentTypes lists the accepted equipment types.
var EquipmentTypes = []EquipmentType{
	EquipmentElectrical,
	EquipmentMechanical,
	EquipmentElectronic,
	EquipmentMeasurement,
	EquipmentOther,
}

// ParseEquipmentType accepts the five types regardless of case or accents.
func ParseEquipmentType(raw string) (EquipmentType, error) {
	folded := EquipmentType(FoldLabel(raw))
	for _, t := range EquipmentTypes {
		if folded == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEquipmentType, raw)
}

// EquipmentStatus is the operational status stored in equipos.estado.
type EquipmentStatus string

const (
	EquipmentOperational    EquipmentStatus = "operativo"
	EquipmentInRepair       EquipmentStatus = "en_reparacion"
	EquipmentInMaintenance  EquipmentStatus = "en_mantenimiento"
	EquipmentOutOfService   EquipmentStatus = "fuera_de_servicio"
	EquipmentObsolete       EquipmentStatus = "obsoleto"
	EquipmentDecommissioned EquipmentStatus = "dado_de_baja"
)

// EquipmentStatuses lists the accepted statuses.
var EquipmentStatuses = []EquipmentStatus{
	EquipmentOperational,
	EquipmentInRepair,
	EquipmentInMaintenance,
	EquipmentOutOfService,
	EquipmentObsolete,
	EquipmentDecommissioned,
}

// ParseEquipmentStatus accepts "En reparación", "en_reparacion" and the like.
func ParseEquipmentStatus(raw string) (EquipmentStatus, error) {
	folded := EquipmentStatus(FoldLabel(raw))
	for _, s := range EquipmentStatuses {
		if folded == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEquipmentStatus, raw)
}

// Equipment is an inventoried asset.
type Equipment struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Type             EquipmentType   `json:"type"`
	Brand            string          `json:"brand"`
	Model            string          `json:"model"`
	Revision         string          `json:"revision"`
	SerialNumber     string          `json:"serial_number"`
	ManufactureYear  int             `json:"manufacture_year"`
	PhysicalLocation string          `json:"physical_location"`
	Zone             string          `json:"zone"`
	Room             string          `json:"room"`
	SegmentID        *uuid.UUID      `json:"segment_id,omitempty"`
	DirectionID      *uuid.UUID      `json:"direction_id,omitempty"`
	MilestoneID      *uuid.UUID      `json:"milestone_id,omitempty"`
	ShelterID        *uuid.UUID      `json:"shelter_id,omitempty"`
	GantryID         *uuid.UUID      `json:"gantry_id,omitempty"`
	UsefulLifeYears  *int            `json:"useful_life_years,omitempty"`
	NextMaintenance  *time.Time      `json:"next_maintenance,omitempty"`
	Responsible      string          `json:"responsible"`
	Provider         string          `json:"provider"`
	Notes            string          `json:"notes"`
	Status           EquipmentStatus `json:"status"`
	SegmentName      string          `json:"segment_name,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// EquipmentFilter narrows equipment listings. Zero values are ignored.
type EquipmentFilter struct {
	Type      EquipmentType
	Status    EquipmentStatus
	SegmentID *uuid.UUID
	Search    string
	Limit     int
	Offset    int
}

// EquipmentStatusChange is one row of equipos_historial_estado.
type EquipmentStatusChange struct {
	ID             uuid.UUID       `json:"id"`
	EquipmentID    uuid.UUID       `json:"equipment_id"`
	PreviousStatus EquipmentStatus `json:"previous_status"`
	NewStatus      EquipmentStatus `json:"new_status"`
	Reason         string          `json:"reason"`
	Actor          string          `json:"actor,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EquipmentLog is one free-form row of equipos_logs.
type EquipmentLog struct {
	ID          uuid.UUID `json:"id"`
	EquipmentID uuid.UUID `json:"equipment_id"`
	Action      string    `json:"action"`
	Detail      string    `json:"detail"`
	Actor       string    `json:"actor,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
