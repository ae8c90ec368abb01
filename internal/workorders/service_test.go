package workorders

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/checklist"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/repository"
	"github.com/rpattn/maintops/internal/repository/memory"
	"github.com/rpattn/maintops/internal/transition"
)

type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	deleteErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (f *fakeBlobs) Put(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeBlobs) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return io.NopCloser(bytes.NewReader(f.objects[key])), nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobs) URL(key string) string {
	return "https://files.test/" + key
}

var fixedNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store, *fakeBlobs) {
	t.Helper()
	store := memory.NewStore()
	store.SetClock(func() time.Time { return fixedNow })
	blobs := newFakeBlobs()
	svc, err := NewService(store, WithBlobStore(blobs), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return svc, store, blobs
}

func createOrder(t *testing.T, svc *Service) domain.WorkOrder {
	t.Helper()
	wo, _, err := svc.Create(context.Background(), CreateInput{
		ScheduledDate:   fixedNow.Add(24 * time.Hour),
		MaintenanceType: "Preventivo",
		Technician:      "Ana",
		Site:            "Peaje Norte",
	})
	require.NoError(t, err)
	return wo
}

func TestCreate_PlannedWithHistoryAndChecklist(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	wo, items, err := svc.Create(ctx, CreateInput{
		ScheduledDate:   fixedNow,
		MaintenanceType: "Mantención eléctrica",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatePlanned, wo.State)
	assert.NotEmpty(t, items)
	assert.Equal(t, len(items), store.ChecklistCount(wo.ID))

	history, err := svc.History(ctx, wo.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ActionCreate, history[0].Action)
	assert.Equal(t, "system", history[0].Actor)
}

func TestCreate_RequiresScheduleAndMaintenanceType(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, _, err := svc.Create(context.Background(), CreateInput{Technician: "Ana"})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, store.HistoryAppends())
}

func TestStart_FromPlanned(t *testing.T) {
	svc, _, _ := newTestService(t)
	wo := createOrder(t, svc)

	result, err := svc.Start(context.Background(), wo.ID, "")
	require.NoError(t, err)

	assert.Equal(t, domain.StateInProgress, result.WorkOrder.State)
	require.NotNil(t, result.WorkOrder.StartTime)
	assert.True(t, result.WorkOrder.StartTime.Equal(fixedNow))
	assert.Equal(t, domain.ActionStart, result.History.Action)
	assert.Equal(t, domain.StatePlanned, result.History.PreviousState)
	assert.Equal(t, domain.StateInProgress, result.History.NewState)
}

func TestStartAndResume_RequireTheirSourceState(t *testing.T) {
	svc, store, _ := newTestService(t)
	wo := createOrder(t, svc)
	ctx := context.Background()
	before := store.HistoryAppends()

	_, err := svc.Resume(ctx, wo.ID, "")
	require.ErrorIs(t, err, transition.ErrTransitionNotAllowed)
	assert.Equal(t, before, store.HistoryAppends())

	_, err = svc.Start(ctx, wo.ID, "")
	require.NoError(t, err)
	_, err = svc.Pause(ctx, wo.ID, "espera de repuesto")
	require.NoError(t, err)

	_, err = svc.Start(ctx, wo.ID, "")
	require.ErrorIs(t, err, transition.ErrTransitionNotAllowed)

	result, err := svc.Resume(ctx, wo.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionResume, result.History.Action)
	assert.Equal(t, domain.StatePaused, result.History.PreviousState)
	assert.Equal(t, domain.StateInProgress, result.WorkOrder.State)
}

func TestReaderCannotChangeWorkOrders(t *testing.T) {
	svc, store, _ := newTestService(t)
	wo := createOrder(t, svc)
	reader := auth.ContextWithPrincipal(context.Background(), auth.Principal{Subject: "viewer", Role: domain.RoleReader})
	before := store.HistoryAppends()

	completed := domain.StateCompleted
	_, err := svc.Edit(reader, wo.ID, domain.WorkOrderPatch{State: &completed, Note: "done"}, "")
	require.ErrorIs(t, err, auth.ErrForbidden)
	_, err = svc.Complete(reader, wo.ID, "done")
	require.ErrorIs(t, err, auth.ErrForbidden)
	_, _, err = svc.Create(reader, CreateInput{ScheduledDate: fixedNow, MaintenanceType: "Preventivo"})
	require.ErrorIs(t, err, auth.ErrForbidden)
	_, err = svc.AddObservation(reader, wo.ID, "info", "texto")
	require.ErrorIs(t, err, auth.ErrForbidden)
	_, err = svc.UploadPhoto(reader, wo.ID, "a.png", strings.NewReader("png"), "")
	require.ErrorIs(t, err, auth.ErrForbidden)
	require.ErrorIs(t, svc.DeleteObservation(reader, uuid.New()), auth.ErrForbidden)

	reloaded, err := svc.Get(reader, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePlanned, reloaded.State)
	assert.Equal(t, before, store.HistoryAppends())
}

func TestComplete_EndNotBeforeStart(t *testing.T) {
	svc, _, _ := newTestService(t)
	wo := createOrder(t, svc)
	ctx := context.Background()

	_, err := svc.Start(ctx, wo.ID, "")
	require.NoError(t, err)

	_, err = svc.Complete(ctx, wo.ID, "  ")
	require.ErrorIs(t, err, transition.ErrClosingNoteRequired)

	result, err := svc.Complete(ctx, wo.ID, "Cambio de filtros realizado")
	require.NoError(t, err)
	require.NotNil(t, result.WorkOrder.EndTime)
	assert.False(t, result.WorkOrder.EndTime.Before(*result.WorkOrder.StartTime))
	assert.Equal(t, "Cambio de filtros realizado", result.WorkOrder.ClosingNote)

	_, err = svc.Cancel(ctx, wo.ID, "")
	require.ErrorIs(t, err, transition.ErrTerminalState)
}

func TestTransition_RollsBackWhenHistoryFails(t *testing.T) {
	svc, store, _ := newTestService(t)
	wo := createOrder(t, svc)
	ctx := context.Background()
	before := store.HistoryAppends()

	store.FailOn(memory.OpHistoryAppend, errors.New("disk full"))
	_, err := svc.Start(ctx, wo.ID, "")
	require.Error(t, err)
	store.FailOn(memory.OpHistoryAppend, nil)

	reloaded, err := svc.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePlanned, reloaded.State)
	assert.Nil(t, reloaded.StartTime)
	assert.Equal(t, before, store.HistoryAppends())
}

func TestEdit_RecordsOnlyChangedFields(t *testing.T) {
	svc, store, _ := newTestService(t)
	wo := createOrder(t, svc)
	ctx := context.Background()
	before := store.HistoryAppends()

	technician := "Luis"
	site := "Peaje Norte"
	result, err := svc.Edit(ctx, wo.ID, domain.WorkOrderPatch{Technician: &technician, Site: &site}, "supervisor@example.com")
	require.NoError(t, err)

	assert.Equal(t, before+1, store.HistoryAppends())
	assert.Equal(t, domain.ActionEdit, result.History.Action)
	assert.Equal(t, domain.StatePlanned, result.History.PreviousState)
	assert.Equal(t, domain.StatePlanned, result.History.NewState)
	assert.Equal(t, []string{"tecnico_asignado"}, domain.ChangedColumns(result.History.Changes))
	assert.Equal(t, "Ana", result.History.Changes["tecnico_asignado"].Old)
	assert.Equal(t, "Luis", result.History.Changes["tecnico_asignado"].New)
	assert.Equal(t, "supervisor@example.com", result.History.Actor)
}

func TestEdit_NoChangesWritesNothing(t *testing.T) {
	svc, store, _ := newTestService(t)
	wo := createOrder(t, svc)
	before := store.HistoryAppends()

	technician := "Ana"
	_, err := svc.Edit(context.Background(), wo.ID, domain.WorkOrderPatch{Technician: &technician}, "")
	require.ErrorIs(t, err, ErrNoChanges)
	assert.Equal(t, before, store.HistoryAppends())

	_, err = svc.Edit(context.Background(), wo.ID, domain.WorkOrderPatch{}, "")
	require.ErrorIs(t, err, ErrNoChanges)
}

func TestEdit_StateChangeFollowsTransitionRules(t *testing.T) {
	svc, _, _ := newTestService(t)
	wo := createOrder(t, svc)
	ctx := context.Background()

	paused := domain.StatePaused
	_, err := svc.Edit(ctx, wo.ID, domain.WorkOrderPatch{State: &paused}, "")
	require.ErrorIs(t, err, transition.ErrTransitionNotAllowed)

	started := domain.StateInProgress
	result, err := svc.Edit(ctx, wo.ID, domain.WorkOrderPatch{State: &started}, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatePlanned, result.History.PreviousState)
	assert.Equal(t, domain.StateInProgress, result.History.NewState)
	assert.Contains(t, result.History.Changes, "estado")
	assert.Contains(t, result.History.Changes, "fecha_inicio")
}

func TestProvisionChecklist_Idempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	wo := createOrder(t, svc)
	ctx := context.Background()

	first, err := svc.ProvisionChecklist(ctx, wo.ID)
	require.NoError(t, err)
	second, err := svc.ProvisionChecklist(ctx, wo.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, len(first), store.ChecklistCount(wo.ID))
}

func TestProvisionChecklist_UsesLinkedEquipmentType(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	meter, err := store.Equipment().Create(ctx, domain.Equipment{Name: "Multímetro", Type: domain.EquipmentMeasurement})
	require.NoError(t, err)
	wo, err := store.WorkOrders().Create(ctx, domain.WorkOrder{
		ScheduledDate:   fixedNow,
		MaintenanceType: "Mantención eléctrica",
		EquipmentID:     &meter.ID,
		State:           domain.StatePlanned,
	})
	require.NoError(t, err)

	items, err := svc.Checklist(ctx, wo.ID)
	require.NoError(t, err)
	assert.Empty(t, items, "reading must not provision")

	items, err = svc.ProvisionChecklist(ctx, wo.ID)
	require.NoError(t, err)

	catalog, err := checklist.DefaultCatalog()
	require.NoError(t, err)
	expected := catalog.Resolve(domain.EquipmentMeasurement)
	require.Len(t, items, len(expected.Items))
	assert.Equal(t, expected.Items[0].Description, items[0].Description)
	assert.Equal(t, 1, items[0].Position)
}

func TestSetChecklistItemCompleted(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, items, err := svc.Create(ctx, CreateInput{ScheduledDate: fixedNow, MaintenanceType: "Preventivo"})
	require.NoError(t, err)
	require.NotEmpty(t, items)

	done, err := svc.SetChecklistItemCompleted(ctx, items[0].ID, true)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.Equal(fixedNow))

	undone, err := svc.SetChecklistItemCompleted(ctx, items[0].ID, false)
	require.NoError(t, err)
	assert.False(t, undone.Completed)
	assert.Nil(t, undone.CompletedAt)

	reader := auth.ContextWithPrincipal(ctx, auth.Principal{Subject: "viewer", Role: domain.RoleReader})
	_, err = svc.SetChecklistItemCompleted(reader, items[0].ID, true)
	require.ErrorIs(t, err, auth.ErrForbidden)
}

func TestChecklistBoard_PersistsThroughService(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	_, items, err := svc.Create(ctx, CreateInput{ScheduledDate: fixedNow, MaintenanceType: "Preventivo"})
	require.NoError(t, err)

	var notices []checklist.Notice
	board := checklist.NewBoard(items, svc, checklist.NotifierFunc(func(n checklist.Notice) {
		notices = append(notices, n)
	}))

	store.FailOn(memory.OpChecklistUpdate, errors.New("connection reset"))
	_, err = board.Toggle(ctx, items[0].ID)
	require.Error(t, err)
	assert.False(t, board.Items()[0].Completed)
	require.Len(t, notices, 1)

	store.FailOn(memory.OpChecklistUpdate, nil)
	completed, err := board.Toggle(ctx, items[0].ID)
	require.NoError(t, err)
	assert.True(t, completed)

	stored, err := store.Checklist().GetByID(ctx, items[0].ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
}

func TestObservations(t *testing.T) {
	svc, _, _ := newTestService(t)
	wo := createOrder(t, svc)
	ctx := auth.ContextWithPrincipal(context.Background(), auth.Principal{Subject: "tec-1", Role: domain.RoleTechnician})

	_, err := svc.AddObservation(ctx, wo.ID, "urgent", "texto")
	require.ErrorIs(t, err, domain.ErrInvalidObservationKind)
	_, err = svc.AddObservation(ctx, wo.ID, "info", "   ")
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AddObservation(ctx, uuid.New(), "info", "texto")
	require.ErrorIs(t, err, repository.ErrNotFound)

	observation, err := svc.AddObservation(ctx, wo.ID, "Warning", "Fuga de aceite leve")
	require.NoError(t, err)
	assert.Equal(t, domain.ObservationWarning, observation.Kind)
	assert.Equal(t, "tec-1", observation.Author)

	listed, err := svc.Observations(ctx, wo.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, svc.DeleteObservation(ctx, observation.ID))
	listed, err = svc.Observations(ctx, wo.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestUploadPhoto_StoresBlobAndReference(t *testing.T) {
	svc, _, blobs := newTestService(t)
	wo := createOrder(t, svc)
	ctx := context.Background()

	photo, err := svc.UploadPhoto(ctx, wo.ID, "tablero.JPG", strings.NewReader("jpeg-bytes"), " antes ")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(photo.Path, wo.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(photo.Path, ".jpg"))
	assert.Equal(t, "antes", photo.Caption)
	assert.Equal(t, "https://files.test/"+photo.Path, photo.URL)
	assert.Equal(t, []byte("jpeg-bytes"), blobs.objects[photo.Path])

	_, err = svc.UploadPhoto(ctx, wo.ID, "notes.txt", strings.NewReader("x"), "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestUploadPhoto_RemovesBlobWhenInsertFails(t *testing.T) {
	svc, store, blobs := newTestService(t)
	wo := createOrder(t, svc)

	store.FailOn(memory.OpPhotoCreate, errors.New("insert failed"))
	_, err := svc.UploadPhoto(context.Background(), wo.ID, "a.png", strings.NewReader("png"), "")
	require.Error(t, err)

	assert.Empty(t, blobs.objects)
	require.Len(t, blobs.deleted, 1)
	assert.True(t, strings.HasPrefix(blobs.deleted[0], wo.ID.String()+"/"))
}

func TestDeletePhoto_ReportsBlobFailure(t *testing.T) {
	svc, _, blobs := newTestService(t)
	wo := createOrder(t, svc)
	ctx := context.Background()

	photo, err := svc.UploadPhoto(ctx, wo.ID, "a.png", strings.NewReader("png"), "")
	require.NoError(t, err)

	blobs.deleteErr = errors.New("permission denied")
	err = svc.DeletePhoto(ctx, photo.ID)
	require.Error(t, err)

	photos, err := svc.Photos(ctx, wo.ID)
	require.NoError(t, err)
	assert.Empty(t, photos, "the reference is removed even when blob cleanup fails")
}

func TestDelete_RequiresAdmin(t *testing.T) {
	svc, _, blobs := newTestService(t)
	wo := createOrder(t, svc)
	_, err := svc.UploadPhoto(context.Background(), wo.ID, "a.png", strings.NewReader("png"), "")
	require.NoError(t, err)

	supervisor := auth.ContextWithPrincipal(context.Background(), auth.Principal{Subject: "sup", Role: domain.RoleSupervisor})
	require.ErrorIs(t, svc.Delete(supervisor, wo.ID), auth.ErrForbidden)

	admin := auth.ContextWithPrincipal(context.Background(), auth.Principal{Subject: "root", Role: domain.RoleAdmin})
	require.NoError(t, svc.Delete(admin, wo.ID))

	_, err = svc.Get(admin, wo.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, blobs.objects)
}
