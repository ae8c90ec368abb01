package workorders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/equipmentloader"
)

func serve(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_EditWithoutChanges(t *testing.T) {
	svc, _, _ := newTestService(t)
	wo := createOrder(t, svc)
	handler := NewHTTPHandler(svc)

	rec := serve(t, handler, http.MethodPatch, "/work-orders/"+wo.ID.String(), `{"technician":"Ana"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"changed":false,"message":"no changes were made"}`, rec.Body.String())
}

func TestHandler_EditStateRequiresOperatorRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	wo := createOrder(t, svc)
	handler := NewHTTPHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/work-orders/"+wo.ID.String(), strings.NewReader(`{"state":"Completada","note":"done"}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.Principal{Subject: "viewer", Role: domain.RoleReader}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	stored, err := svc.Get(testContext(t), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePlanned, stored.State)
	assert.Empty(t, stored.ClosingNote)
}

func TestHandler_EditAcceptsLegacyStateLabel(t *testing.T) {
	svc, _, _ := newTestService(t)
	wo := createOrder(t, svc)
	handler := NewHTTPHandler(svc)

	rec := serve(t, handler, http.MethodPatch, "/work-orders/"+wo.ID.String(), `{"state":"en_ejecucion"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := svc.Get(testContext(t), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInProgress, stored.State)
	assert.Equal(t, "En ejecución", string(stored.State))
	require.NotNil(t, stored.StartTime)

	rec = serve(t, handler, http.MethodPatch, "/work-orders/"+wo.ID.String(), `{"state":"archivada"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_TransitionStatusCodes(t *testing.T) {
	svc, _, _ := newTestService(t)
	wo := createOrder(t, svc)
	handler := NewHTTPHandler(svc)
	base := "/work-orders/" + wo.ID.String()

	rec := serve(t, handler, http.MethodPost, base+"/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result TransitionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.StateInProgress, result.WorkOrder.State)
	assert.Equal(t, domain.ActionStart, result.History.Action)

	rec = serve(t, handler, http.MethodPost, base+"/complete", `{"note":""}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, handler, http.MethodPost, "/work-orders/not-a-uuid/start", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListEmbedsLinkedEquipment(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := testContext(t)
	pump, err := store.Equipment().Create(ctx, domain.Equipment{Name: "Bomba 1", Type: domain.EquipmentMechanical})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, CreateInput{ScheduledDate: fixedNow, MaintenanceType: "Preventivo", EquipmentID: &pump.ID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/work-orders?state=planificada", nil)
	req = req.WithContext(equipmentloader.WithLoader(req.Context(), equipmentloader.NewEquipmentLoader(store.Equipment())))
	rec := httptest.NewRecorder()
	NewHTTPHandler(svc).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []struct {
			State     domain.WorkOrderState `json:"state"`
			Equipment *struct {
				Name string `json:"name"`
			} `json:"equipment"`
		} `json:"items"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	require.NotNil(t, body.Items[0].Equipment)
	assert.Equal(t, "Bomba 1", body.Items[0].Equipment.Name)
}

func TestHandler_ChecklistReadAndToggle(t *testing.T) {
	svc, _, _ := newTestService(t)
	wo := createOrder(t, svc)
	handler := NewHTTPHandler(svc)

	rec := serve(t, handler, http.MethodGet, "/work-orders/"+wo.ID.String()+"/checklist", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body checklistResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Items)
	assert.Equal(t, len(body.Items), body.Progress.Total)

	rec = serve(t, handler, http.MethodPatch, "/checklist-items/"+body.Items[0].ID.String(), `{"completed":true,"notes":"ok"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var item domain.ChecklistItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.True(t, item.Completed)
	assert.Equal(t, "ok", item.Notes)
}

// testContext mirrors testing.T.Context (Go 1.24+): a context canceled when the test ends.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
