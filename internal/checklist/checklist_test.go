package checklist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/maintops/internal/domain"
)

func TestDefaultCatalog_Loads(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	assert.Len(t, catalog.Default, 6)
	assert.Len(t, catalog.Templates, len(domain.EquipmentTypes))
}

func TestResolve_Order(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	tests := []struct {
		name          string
		equipmentType domain.EquipmentType
		texts         []string
		wantSource    Source
		wantType      domain.EquipmentType
	}{
		{name: "equipment type wins over keywords", equipmentType: domain.EquipmentMechanical, texts: []string{"Calibración"}, wantSource: SourceEquipment, wantType: domain.EquipmentMechanical},
		{name: "accented keyword", texts: []string{"Mantención eléctrica preventiva"}, wantSource: SourceKeyword, wantType: domain.EquipmentElectrical},
		{name: "calibration keyword", texts: []string{"", "Calibración anual"}, wantSource: SourceKeyword, wantType: domain.EquipmentMeasurement},
		{name: "electronic is not electric", texts: []string{"Revisión electrónica"}, wantSource: SourceKeyword, wantType: domain.EquipmentElectronic},
		{name: "fallback", texts: []string{"Preventivo"}, wantSource: SourceDefault},
		{name: "keyword as a word", texts: []string{"Revisión UPS sala norte"}, wantSource: SourceKeyword, wantType: domain.EquipmentElectrical},
		{name: "keyword inside a word", texts: []string{"Mantención grupos electrógenos"}, wantSource: SourceDefault},
		{name: "keyword suffix of a word", texts: []string{"Extensión de red"}, wantSource: SourceDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolution := catalog.Resolve(tt.equipmentType, tt.texts...)
			assert.Equal(t, tt.wantSource, resolution.Source)
			assert.Equal(t, tt.wantType, resolution.Type)
			assert.NotEmpty(t, resolution.Items)
		})
	}
}

func TestItemsFor_NumbersPositions(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	wo := domain.NewWorkOrder(time.Now(), "Preventivo")

	resolution, items := catalog.ItemsFor(wo, nil)
	require.Equal(t, SourceDefault, resolution.Source)
	require.Len(t, items, 6)
	for i, item := range items {
		assert.Equal(t, i+1, item.Position)
		assert.Equal(t, wo.ID, item.WorkOrderID)
		assert.False(t, item.Completed)
	}
}

func TestParseCatalog_RejectsUnknownType(t *testing.T) {
	_, err := ParseCatalog([]byte("templates:\n  - type: hidraulico\n    items:\n      - description: x\ndefault:\n  - description: y\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidEquipmentType)
}

type stubPersister struct {
	err    error
	during func()
	calls  int
}

func (s *stubPersister) SetChecklistItemCompleted(_ context.Context, id uuid.UUID, completed bool) (domain.ChecklistItem, error) {
	s.calls++
	if s.during != nil {
		s.during()
	}
	if s.err != nil {
		return domain.ChecklistItem{}, s.err
	}
	now := time.Now()
	return domain.ChecklistItem{ID: id, Description: "Inspección", Completed: completed, CompletedAt: &now}, nil
}

func TestBoardToggle_Success(t *testing.T) {
	item := domain.ChecklistItem{ID: uuid.New(), Description: "Inspección", Required: true}
	persister := &stubPersister{}
	board := NewBoard([]domain.ChecklistItem{item}, persister, nil)

	persister.during = func() {
		assert.True(t, board.Items()[0].Completed, "local state should flip before the write returns")
	}

	value, err := board.Toggle(context.Background(), item.ID)
	require.NoError(t, err)
	assert.True(t, value)
	assert.NotNil(t, board.Items()[0].CompletedAt)
	assert.True(t, board.Progress().ReadyForClosure)
}

func TestBoardToggle_FailureRevertsAndNotifies(t *testing.T) {
	item := domain.ChecklistItem{ID: uuid.New(), Description: "Inspección", Required: true}
	writeErr := errors.New("network down")
	persister := &stubPersister{err: writeErr}

	var notices []Notice
	board := NewBoard([]domain.ChecklistItem{item}, persister, NotifierFunc(func(n Notice) {
		notices = append(notices, n)
	}))
	persister.during = func() {
		assert.True(t, board.Items()[0].Completed)
	}

	value, err := board.Toggle(context.Background(), item.ID)
	require.ErrorIs(t, err, writeErr)
	assert.False(t, value)
	assert.False(t, board.Items()[0].Completed)
	require.Len(t, notices, 1)
	assert.Equal(t, item.ID, notices[0].ItemID)
	assert.ErrorIs(t, notices[0].Err, writeErr)
}

func TestBoardToggle_UnknownItem(t *testing.T) {
	board := NewBoard(nil, &stubPersister{}, nil)
	_, err := board.Toggle(context.Background(), uuid.New())
	assert.Error(t, err)
}
