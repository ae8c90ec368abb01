package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/equipmentloader"
	"github.com/rpattn/maintops/internal/metrics"
	"github.com/rpattn/maintops/internal/repository/memory"
)

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			_, _ = w.Write([]byte("none"))
			return
		}
		_, _ = w.Write([]byte(principal.Subject + ":" + string(principal.Role)))
	})
}

func TestAuthMiddleware(t *testing.T) {
	verifier := auth.NewTokenVerifier("secret")
	handler := AuthMiddleware(verifier, AuthOptions{PublicPrefixes: []string{"/metrics"}})(echoPrincipal())

	token, err := verifier.Sign("user-7", domain.RoleSupervisor, time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/work-orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7:supervisor", rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/work-orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "none", rec.Body.String())
}

func TestAuthMiddleware_RoleFromUserRoles(t *testing.T) {
	verifier := auth.NewTokenVerifier("secret")
	store := memory.NewStore()
	ctx := context.Background()
	promoted, err := store.Personnel().Create(ctx, domain.Person{Name: "Ana"})
	require.NoError(t, err)
	require.NoError(t, store.Personnel().SetRole(ctx, promoted.ID, domain.RoleSupervisor))
	unassigned, err := store.Personnel().Create(ctx, domain.Person{Name: "Luis"})
	require.NoError(t, err)

	handler := AuthMiddleware(verifier, AuthOptions{Roles: store.Personnel()})(echoPrincipal())
	call := func(subject string, claim domain.Role) string {
		token, err := verifier.Sign(subject, claim, time.Now().Add(time.Hour).Unix())
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/work-orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Body.String()
	}

	assert.Equal(t, promoted.ID.String()+":supervisor", call(promoted.ID.String(), domain.RoleReader))
	assert.Equal(t, unassigned.ID.String()+":tecnico", call(unassigned.ID.String(), domain.RoleTechnician))
	assert.Equal(t, "user-7:lector", call("user-7", domain.RoleReader))

	require.NoError(t, store.Personnel().SetRole(ctx, promoted.ID, domain.RoleReader))
	assert.Equal(t, promoted.ID.String()+":lector", call(promoted.ID.String(), domain.RoleAdmin))
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	handler := AuthMiddleware(nil, AuthOptions{Disabled: true})(echoPrincipal())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/equipment", nil))
	assert.Equal(t, "anonymous:admin", rec.Body.String())
}

func TestMetricsMiddleware_ObservesStatus(t *testing.T) {
	collector := metrics.NewCollector()
	handler := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }),
		LoggingMiddleware,
		MetricsMiddleware(collector),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	count, err := testutil.GatherAndCount(collector.Registry(), "maintops_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDataLoaderMiddleware_AttachesLoader(t *testing.T) {
	store := memory.NewStore()
	item, err := store.Equipment().Create(context.Background(), domain.Equipment{Name: "UPS", Type: domain.EquipmentElectrical})
	require.NoError(t, err)

	var summaries map[uuid.UUID]equipmentloader.Summary
	handler := DataLoaderMiddleware(store.Equipment())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loader := equipmentloader.FromContext(r.Context())
		require.NotNil(t, loader)
		summaries, err = loader.LoadSummaries(r.Context(), []uuid.UUID{item.ID})
		require.NoError(t, err)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/work-orders", nil))
	require.Contains(t, summaries, item.ID)
	assert.True(t, strings.EqualFold(summaries[item.ID].Name, "UPS"))
}
