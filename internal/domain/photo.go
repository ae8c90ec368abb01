package domain

import (
	"time"

	"github.com/google/uuid"
)

// Photo references a binary object in blob storage.
type Photo struct {
	ID          uuid.UUID `json:"id"`
	WorkOrderID uuid.UUID `json:"work_order_id"`
	Path        string    `json:"path"`
	Caption     string    `json:"caption"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
