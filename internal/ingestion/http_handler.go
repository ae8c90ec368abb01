package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/httpapi"
	"github.com/rpattn/maintops/internal/repository"
)

// Handler exposes imports under /imports.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with the upload endpoints.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := strings.Join(httpapi.Segments(r.URL.Path, "/imports"), "/")

	switch {
	case r.Method == http.MethodGet && route == "logs":
		h.handleLogs(w, r)
	case r.Method == http.MethodGet && route == "plan":
		year, err := httpapi.QueryInt(r, "year", 0)
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		activities, err := h.service.Plan(r.Context(), year)
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, activities)
	case r.Method == http.MethodPost:
		h.handleUpload(w, r, route)
	default:
		httpapi.NotFound(w)
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request, route string) {
	switch route {
	case "equipment/preview", "equipment/commit", "plan/preview", "plan/commit":
	default:
		httpapi.NotFound(w)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httpapi.WriteError(w, fmt.Errorf("%w: invalid form data: %v", domain.ErrValidation, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpapi.WriteError(w, fmt.Errorf("%w: file required: %v", domain.ErrValidation, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpapi.WriteError(w, fmt.Errorf("%w: failed to read file: %v", domain.ErrValidation, err))
		return
	}
	upload := Upload{FileName: header.Filename, Data: bytes.NewReader(data)}

	var payload any
	switch route {
	case "equipment/preview":
		payload, err = h.service.PreviewEquipment(r.Context(), upload)
	case "equipment/commit":
		payload, err = h.service.CommitEquipment(r.Context(), upload)
	case "plan/preview":
		payload, err = h.service.PreviewPlan(r.Context(), upload)
	case "plan/commit":
		payload, err = h.service.CommitPlan(r.Context(), upload)
	}
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.ImportLogFilter{
		Kind:     domain.ImportKind(strings.TrimSpace(query.Get("kind"))),
		FileName: strings.TrimSpace(query.Get("file")),
	}
	var err error
	if filter.Limit, err = httpapi.QueryInt(r, "limit", 100); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if filter.Offset, err = httpapi.QueryInt(r, "offset", 0); err != nil {
		httpapi.WriteError(w, err)
		return
	}

	entries, err := h.service.Logs(r.Context(), filter)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, entries)
}
