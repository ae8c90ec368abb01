package checklist

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/domain"
)

// Persister writes a checklist item's completion flag.
type Persister interface {
	SetChecklistItemCompleted(ctx context.Context, id uuid.UUID, completed bool) (domain.ChecklistItem, error)
}

// Notice is a user facing notification raised by the board.
type Notice struct {
	ItemID  uuid.UUID
	Message string
	Err     error
}

// Notifier receives failure notices.
type Notifier interface {
	Notify(notice Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f.
func (f NotifierFunc) Notify(notice Notice) { f(notice) }

// Board is the client side view of one work order's checklist. Toggles are
// applied locally before the write and rolled back if the write fails.
type Board struct {
	mu        sync.Mutex
	items     []domain.ChecklistItem
	persister Persister
	notifier  Notifier
}

// NewBoard wraps items. notifier may be nil.
func NewBoard(items []domain.ChecklistItem, persister Persister, notifier Notifier) *Board {
	copied := make([]domain.ChecklistItem, len(items))
	copy(copied, items)
	return &Board{items: copied, persister: persister, notifier: notifier}
}

// Items returns a snapshot of the current local state.
func (b *Board) Items() []domain.ChecklistItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.ChecklistItem, len(b.items))
	copy(out, b.items)
	return out
}

// Progress summarises the current local state.
func (b *Board) Progress() domain.ChecklistProgress {
	return domain.SummarizeChecklist(b.Items())
}

// Toggle flips the item's completion flag at once and persists it. On failure
// the flag is restored and a notice is emitted. The returned bool is the value
// the item holds afterwards.
func (b *Board) Toggle(ctx context.Context, id uuid.UUID) (bool, error) {
	b.mu.Lock()
	idx := b.indexOf(id)
	if idx < 0 {
		b.mu.Unlock()
		return false, fmt.Errorf("checklist item %s is not on this board", id)
	}
	previous := b.items[idx]
	desired := !previous.Completed
	b.items[idx].Completed = desired
	b.mu.Unlock()

	saved, err := b.persister.SetChecklistItemCompleted(ctx, id, desired)

	b.mu.Lock()
	defer b.mu.Unlock()
	idx = b.indexOf(id)
	if err != nil {
		if idx >= 0 && b.items[idx].Completed == desired {
			b.items[idx] = previous
		}
		if b.notifier != nil {
			b.notifier.Notify(Notice{
				ItemID:  id,
				Message: fmt.Sprintf("could not update %q, change reverted", previous.Description),
				Err:     err,
			})
		}
		return previous.Completed, err
	}
	if idx >= 0 {
		b.items[idx] = saved
	}
	return saved.Completed, nil
}

func (b *Board) indexOf(id uuid.UUID) int {
	for i, item := range b.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
