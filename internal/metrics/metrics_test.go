package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/maintops/internal/domain"
)

func TestRecordTransition(t *testing.T) {
	collector := NewCollector()

	collector.RecordTransition(domain.StatePlanned, domain.StateInProgress)
	collector.RecordTransition(domain.StatePlanned, domain.StateInProgress)

	got := testutil.ToFloat64(collector.transitions.WithLabelValues("Planificada", "En ejecución"))
	assert.Equal(t, 2.0, got)
}

func TestRecordImportRows_IgnoresEmptyBatches(t *testing.T) {
	collector := NewCollector()

	collector.RecordImportRows(domain.ImportEquipment, RowRejected, 0)
	collector.RecordImportRows(domain.ImportEquipment, RowRejected, 3)

	assert.Equal(t, 3.0, testutil.ToFloat64(collector.importRows.WithLabelValues("equipment", RowRejected)))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *Collector
	collector.RecordEdit()
	collector.RecordTransition(domain.StatePaused, domain.StateCancelled)
	collector.ObserveRequest(http.MethodGet, http.StatusOK, time.Millisecond)
}

func TestHandlerExposesMetrics(t *testing.T) {
	collector := NewCollector()
	collector.RecordEdit()
	collector.ObserveRequest(http.MethodPost, http.StatusCreated, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "maintops_work_order_edits_total 1"))
	assert.True(t, strings.Contains(body, `maintops_http_request_duration_seconds_count{method="POST",status="201"} 1`))
}
