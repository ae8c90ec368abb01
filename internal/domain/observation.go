package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidObservationKind is returned for kinds outside info, warning and success.
var ErrInvalidObservationKind = errors.New("invalid observation kind")

// ObservationKind categorises an observation.
type ObservationKind string

const (
	ObservationInfo    ObservationKind = "info"
	ObservationWarning ObservationKind = "warning"
	ObservationSuccess ObservationKind = "success"
)

// ParseObservationKind validates a kind label.
func ParseObservationKind(raw string) (ObservationKind, error) {
	switch kind := ObservationKind(FoldLabel(raw)); kind {
	case ObservationInfo, ObservationWarning, ObservationSuccess:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidObservationKind, raw)
	}
}

// Observation is a note attached to a work order. Observations are appended or
// deleted, never edited.
type Observation struct {
	ID          uuid.UUID       `json:"id"`
	WorkOrderID uuid.UUID       `json:"work_order_id"`
	Kind        ObservationKind `json:"kind"`
	Text        string          `json:"text"`
	Author      string          `json:"author"`
	CreatedAt   time.Time       `json:"created_at"`
}
