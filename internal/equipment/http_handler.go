package equipment

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/httpapi"
)

// Handler serves /equipment and /catalogs.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with the equipment REST endpoints.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

// Register mounts the handler on every path prefix it serves.
func Register(mux *http.ServeMux, handler http.Handler) {
	mux.Handle("/equipment", handler)
	mux.Handle("/equipment/", handler)
	mux.Handle("/catalogs/", handler)
}

type listResponse struct {
	Items []domain.Equipment `json:"items"`
	Total int                `json:"total"`
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/catalogs/") {
		h.serveCatalog(w, r, httpapi.Segments(r.URL.Path, "/catalogs"))
		return
	}

	parts := httpapi.Segments(r.URL.Path, "/equipment")
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	id, err := httpapi.ParseID(parts[0])
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		item, err := h.service.Get(r.Context(), id)
		respond(w, http.StatusOK, item, err)
	case len(parts) == 1 && (r.Method == http.MethodPut || r.Method == http.MethodPatch):
		h.handleUpdate(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := h.service.Delete(r.Context(), id); err != nil {
			httpapi.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost:
		var body statusRequest
		if err := httpapi.DecodeJSON(r, &body); err != nil {
			httpapi.WriteError(w, err)
			return
		}
		change, err := h.service.ChangeStatus(r.Context(), id, body.Status, body.Reason, auth.Actor(r.Context()))
		respond(w, http.StatusOK, change, err)
	case len(parts) == 2 && parts[1] == "history" && r.Method == http.MethodGet:
		changes, err := h.service.StatusHistory(r.Context(), id)
		respond(w, http.StatusOK, changes, err)
	case len(parts) == 2 && parts[1] == "logs" && r.Method == http.MethodGet:
		logs, err := h.service.Logs(r.Context(), id)
		respond(w, http.StatusOK, logs, err)
	default:
		httpapi.NotFound(w)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.EquipmentFilter{Search: strings.TrimSpace(query.Get("search"))}

	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		t, err := domain.ParseEquipmentType(raw)
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		filter.Type = t
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := domain.ParseEquipmentStatus(raw)
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(query.Get("segment_id")); raw != "" {
		id, err := httpapi.ParseID(raw)
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		filter.SegmentID = &id
	}
	var err error
	if filter.Limit, err = httpapi.QueryInt(r, "limit", 50); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if filter.Offset, err = httpapi.QueryInt(r, "offset", 0); err != nil {
		httpapi.WriteError(w, err)
		return
	}

	items, total, err := h.service.List(r.Context(), filter)
	respond(w, http.StatusOK, listResponse{Items: items, Total: total}, err)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var item domain.Equipment
	if err := httpapi.DecodeJSON(r, &item); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	item.ID = uuid.Nil
	created, err := h.service.Create(r.Context(), item)
	respond(w, http.StatusCreated, created, err)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var item domain.Equipment
	if err := httpapi.DecodeJSON(r, &item); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if item.ID != uuid.Nil && item.ID != id {
		httpapi.WriteError(w, fmt.Errorf("%w: body id does not match path", domain.ErrValidation))
		return
	}
	item.ID = id
	updated, err := h.service.Update(r.Context(), item)
	respond(w, http.StatusOK, updated, err)
}

func (h *Handler) serveCatalog(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) != 1 {
		httpapi.NotFound(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		entries, err := h.service.Catalog(r.Context(), parts[0])
		respond(w, http.StatusOK, entries, err)
	case http.MethodPost:
		var entry domain.CatalogEntry
		if err := httpapi.DecodeJSON(r, &entry); err != nil {
			httpapi.WriteError(w, err)
			return
		}
		created, err := h.service.AddCatalogEntry(r.Context(), parts[0], entry)
		respond(w, http.StatusCreated, created, err)
	default:
		methodNotAllowed(w)
	}
}

func respond(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, status, payload)
}

func methodNotAllowed(w http.ResponseWriter) {
	httpapi.WriteJSON(w, http.StatusMethodNotAllowed, httpapi.ErrorBody{Error: "method not allowed"})
}
