package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when a label cannot be mapped to a WorkOrderState.
var ErrInvalidState = errors.New("invalid work order state")

// WorkOrderState is the closed set of work order states. The values are the
// canonical labels stored in ordenes_trabajo.estado.
type WorkOrderState string

const (
	StatePlanned    WorkOrderState = "Planificada"
	StateInProgress WorkOrderState = "En ejecución"
	StatePaused     WorkOrderState = "Pausada"
	StateCompleted  WorkOrderState = "Completada"
	StateCancelled  WorkOrderState = "Cancelada"
)

// WorkOrderStates lists every state in lifecycle order.
var WorkOrderStates = []WorkOrderState{
	StatePlanned,
	StateInProgress,
	StatePaused,
	StateCompleted,
	StateCancelled,
}

// stateAliases maps folded legacy spellings onto canonical states. Existing rows
// were written by several UI versions, so both "en ejecución" and "en_ejecucion"
// appear in stored data.
var stateAliases = map[string]WorkOrderState{
	"planificada":  StatePlanned,
	"planificado":  StatePlanned,
	"planned":      StatePlanned,
	"en_ejecucion": StateInProgress,
	"ejecucion":    StateInProgress,
	"en_progreso":  StateInProgress,
	"in_progress":  StateInProgress,
	"pausada":      StatePaused,
	"pausado":      StatePaused,
	"paused":       StatePaused,
	"completada":   StateCompleted,
	"completado":   StateCompleted,
	"finalizada":   StateCompleted,
	"finalizado":   StateCompleted,
	"completed":    StateCompleted,
	"cancelada":    StateCancelled,
	"cancelado":    StateCancelled,
	"cancelled":    StateCancelled,
	"canceled":     StateCancelled,
}

// StateAliases returns a copy of the folded label table ParseWorkOrderState
// consults. The 0002 migration folds stored rows with the same table.
func StateAliases() map[string]WorkOrderState {
	aliases := make(map[string]WorkOrderState, len(stateAliases))
	for k, v := range stateAliases {
		aliases[k] = v
	}
	return aliases
}

// ParseWorkOrderState maps a stored or user supplied label onto its canonical
// state. Matching ignores case, accents and separator style.
func ParseWorkOrderState(raw string) (WorkOrderState, error) {
	if state, ok := stateAliases[FoldLabel(raw)]; ok {
		return state, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidState, raw)
}

// Valid reports whether s is one of the canonical states.
func (s WorkOrderState) Valid() bool {
	for _, state := range WorkOrderStates {
		if s == state {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave s.
func (s WorkOrderState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

func (s WorkOrderState) String() string {
	return string(s)
}

// UnmarshalText accepts any spelling ParseWorkOrderState does, so JSON request
// bodies may carry legacy labels. An empty label decodes to the zero state.
func (s *WorkOrderState) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = ""
		return nil
	}
	state, err := ParseWorkOrderState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}
