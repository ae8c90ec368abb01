// Package transition decides whether a work order may move to a requested state
// and which fields the move stamps. Evaluate is pure: it performs no I/O and
// reads the clock only through Request.Now.
package transition

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rpattn/maintops/internal/domain"
)

var (
	// ErrTransitionNotAllowed is returned when the rule table has no edge for the move.
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	// ErrTerminalState is returned when the work order is already completed or cancelled.
	ErrTerminalState = errors.New("work order is in a terminal state")
	// ErrClosingNoteRequired is returned when completing without a closing note.
	ErrClosingNoteRequired = errors.New("a closing note is required to complete a work order")
)

// WarningMissingStart is attached when a work order is completed without ever
// having been started.
const WarningMissingStart = "completed without a recorded start"

// Request describes a requested state change.
type Request struct {
	Current domain.WorkOrder
	Target  domain.WorkOrderState
	// From, when non-empty, narrows the source states the move is accepted
	// from. Start and resume both target InProgress but leave different states.
	From  []domain.WorkOrderState
	Note  string
	Actor string
	Now   time.Time
}

// Decision is the outcome of an accepted transition: the work order to store
// and the history row to append alongside it.
type Decision struct {
	WorkOrder domain.WorkOrder
	History   domain.HistoryRecord
	Warnings  []string
}

// Evaluate applies the transition rules:
//
//	Planned, Paused          -> InProgress  stamps start time if unset
//	InProgress               -> Paused
//	Planned, Paused, InProg. -> Completed   needs a note, stamps end time
//	any non-terminal         -> Cancelled
func Evaluate(req Request) (Decision, error) {
	current := req.Current
	from := current.State
	to := req.Target
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	if !to.Valid() {
		return Decision{}, fmt.Errorf("%w: %q", domain.ErrInvalidState, to)
	}
	if from.IsTerminal() {
		return Decision{}, fmt.Errorf("%w: %s cannot move to %s", ErrTerminalState, from, to)
	}
	if len(req.From) > 0 && !slices.Contains(req.From, from) {
		return Decision{}, notAllowed(from, to)
	}
	if from == to {
		return Decision{}, fmt.Errorf("%w: work order is already %s", ErrTransitionNotAllowed, from)
	}

	next := current
	next.State = to
	note := strings.TrimSpace(req.Note)

	var (
		action   domain.HistoryAction
		summary  string
		warnings []string
	)

	switch to {
	case domain.StateInProgress:
		if from != domain.StatePlanned && from != domain.StatePaused {
			return Decision{}, notAllowed(from, to)
		}
		action, summary = domain.ActionStart, "Work order started"
		if from == domain.StatePaused {
			action, summary = domain.ActionResume, "Work order resumed"
		}
		if next.StartTime == nil {
			started := now
			next.StartTime = &started
		}
	case domain.StatePaused:
		if from != domain.StateInProgress {
			return Decision{}, notAllowed(from, to)
		}
		action, summary = domain.ActionPause, "Work order paused"
	case domain.StateCompleted:
		if note == "" {
			return Decision{}, ErrClosingNoteRequired
		}
		action, summary = domain.ActionComplete, "Work order completed"
		ended := now
		if next.StartTime == nil {
			warnings = append(warnings, WarningMissingStart)
		} else if ended.Before(*next.StartTime) {
			ended = *next.StartTime
		}
		next.EndTime = &ended
		next.ClosingNote = note
	case domain.StateCancelled:
		action, summary = domain.ActionCancel, "Work order cancelled"
	default:
		return Decision{}, notAllowed(from, to)
	}

	next.UpdatedAt = now
	description := summary
	if note != "" {
		description = note
	}

	return Decision{
		WorkOrder: next,
		History: domain.HistoryRecord{
			WorkOrderID:   current.ID,
			Action:        action,
			PreviousState: from,
			NewState:      to,
			Description:   description,
			Changes:       domain.DiffWorkOrders(current, next),
			Actor:         req.Actor,
			CreatedAt:     now,
		},
		Warnings: warnings,
	}, nil
}

// Allowed lists the states a work order in state from may move to. Terminal
// states allow nothing.
func Allowed(from domain.WorkOrderState) []domain.WorkOrderState {
	switch from {
	case domain.StatePlanned:
		return []domain.WorkOrderState{domain.StateInProgress, domain.StateCompleted, domain.StateCancelled}
	case domain.StateInProgress:
		return []domain.WorkOrderState{domain.StatePaused, domain.StateCompleted, domain.StateCancelled}
	case domain.StatePaused:
		return []domain.WorkOrderState{domain.StateInProgress, domain.StateCompleted, domain.StateCancelled}
	default:
		return nil
	}
}

func notAllowed(from, to domain.WorkOrderState) error {
	return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
}
