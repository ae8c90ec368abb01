package equipmentloader

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository/memory"
)

func TestLoadSummaries_BatchesAndSkipsMissing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	pump, err := store.Equipment().Create(ctx, domain.Equipment{Name: "Bomba 1", Type: domain.EquipmentMechanical})
	require.NoError(t, err)
	ups, err := store.Equipment().Create(ctx, domain.Equipment{Name: "UPS norte", Type: domain.EquipmentElectrical})
	require.NoError(t, err)

	loader := NewEquipmentLoader(store.Equipment())
	missing := uuid.New()
	summaries, err := loader.LoadSummaries(ctx, []uuid.UUID{pump.ID, missing, ups.ID})
	require.NoError(t, err)

	require.Len(t, summaries, 2)
	require.Equal(t, "Bomba 1", summaries[pump.ID].Name)
	require.Equal(t, domain.EquipmentOperational, summaries[ups.ID].Status)
	_, found := summaries[missing]
	require.False(t, found)
}

func TestFromContext(t *testing.T) {
	require.Nil(t, FromContext(context.Background()))

	loader := NewEquipmentLoader(memory.NewStore().Equipment())
	ctx := WithLoader(context.Background(), loader)
	require.Same(t, loader, FromContext(ctx))
}
