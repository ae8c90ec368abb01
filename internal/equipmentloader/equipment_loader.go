// Package equipmentloader batches equipment lookups made while rendering one
// request.
package equipmentloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

type ctxKey string

const loaderKey ctxKey = "equipmentLoader"

// Summary is the linked-equipment excerpt embedded in work order responses.
type Summary struct {
	ID     uuid.UUID              `json:"id"`
	Name   string                 `json:"name"`
	Type   domain.EquipmentType   `json:"type"`
	Status domain.EquipmentStatus `json:"status"`
}

// EquipmentLoader wraps a batched dataloader over EquipmentRepository.GetByIDs.
type EquipmentLoader struct {
	Loader *dataloader.Loader
}

// NewEquipmentLoader creates a loader that collects keys for 5ms before issuing
// one GetByIDs call.
func NewEquipmentLoader(repo repository.EquipmentRepository) *EquipmentLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))
		ids := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				for j := range results {
					results[j] = &dataloader.Result{Error: fmt.Errorf("invalid UUID: %w", err)}
				}
				return results
			}
			ids[i] = id
		}

		items, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byID := make(map[uuid.UUID]domain.Equipment, len(items))
		for _, item := range items {
			byID[item.ID] = item
		}
		for i, id := range ids {
			if item, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: item}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))
	return &EquipmentLoader{Loader: loader}
}

// LoadSummaries resolves every id in one batch. Missing equipment is absent
// from the result.
func (l *EquipmentLoader) LoadSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Summary, error) {
	out := make(map[uuid.UUID]Summary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(id.String())
	}
	values, errs := l.Loader.LoadMany(ctx, keys)()
	for i, value := range values {
		if i < len(errs) && errs[i] != nil {
			return nil, errs[i]
		}
		item, ok := value.(domain.Equipment)
		if !ok {
			continue
		}
		out[item.ID] = Summary{ID: item.ID, Name: item.Name, Type: item.Type, Status: item.Status}
	}
	return out, nil
}

// WithLoader stores loader in ctx.
func WithLoader(ctx context.Context, loader *EquipmentLoader) context.Context {
	return context.WithValue(ctx, loaderKey, loader)
}

// FromContext returns the request's loader, or nil outside a request.
func FromContext(ctx context.Context) *EquipmentLoader {
	if l, ok := ctx.Value(loaderKey).(*EquipmentLoader); ok {
		return l
	}
	return nil
}
