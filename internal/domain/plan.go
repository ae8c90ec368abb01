package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlanActivity is one row of the annual maintenance plan.
type PlanActivity struct {
	ID          uuid.UUID `json:"id"`
	Year        int       `json:"year"`
	Activity    string    `json:"activity"`
	Equipment   string    `json:"equipment"`
	Responsible string    `json:"responsible"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	SourceFile  string    `json:"source_file,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
