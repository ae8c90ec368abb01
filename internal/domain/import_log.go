package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportKind identifies the bulk upload a log entry belongs to.
type ImportKind string

const (
	ImportEquipment  ImportKind = "equipment"
	ImportAnnualPlan ImportKind = "annual_plan"
)

// ImportLogEntry captures row level issues that occur during a bulk import.
type ImportLogEntry struct {
	ID           uuid.UUID  `json:"id"`
	Kind         ImportKind `json:"kind"`
	FileName     string     `json:"file_name"`
	RowNumber    *int       `json:"row_number,omitempty"`
	ErrorMessage string     `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
}
