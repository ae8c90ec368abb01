// Package reports serves the aggregated figures of the reporting dashboard.
package reports

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/httpapi"
	"github.com/rpattn/maintops/internal/repository"
)

type Service struct {
	reports repository.ReportRepository
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(reports repository.ReportRepository, opts ...Option) *Service {
	service := &Service{reports: reports, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Dashboard computes the dashboard as of the service clock. Every known state
// and status is present in the result, with zero when nothing matches.
func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	dashboard, err := s.reports.Dashboard(ctx, s.now())
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("failed to compute dashboard: %w", err)
	}
	if dashboard.WorkOrdersByState == nil {
		dashboard.WorkOrdersByState = map[domain.WorkOrderState]int{}
	}
	for _, state := range domain.WorkOrderStates {
		if _, ok := dashboard.WorkOrdersByState[state]; !ok {
			dashboard.WorkOrdersByState[state] = 0
		}
	}
	if dashboard.EquipmentByStatus == nil {
		dashboard.EquipmentByStatus = map[domain.EquipmentStatus]int{}
	}
	for _, status := range domain.EquipmentStatuses {
		if _, ok := dashboard.EquipmentByStatus[status]; !ok {
			dashboard.EquipmentByStatus[status] = 0
		}
	}
	return dashboard, nil
}

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func Register(mux *http.ServeMux, handler http.Handler) {
	mux.Handle("/reports/", handler)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := httpapi.Segments(r.URL.Path, "/reports")
	if len(parts) != 1 || parts[0] != "dashboard" {
		httpapi.NotFound(w)
		return
	}
	if r.Method != http.MethodGet {
		httpapi.WriteJSON(w, http.StatusMethodNotAllowed, httpapi.ErrorBody{Error: "method not allowed"})
		return
	}
	dashboard, err := h.service.Dashboard(r.Context())
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, dashboard)
}
