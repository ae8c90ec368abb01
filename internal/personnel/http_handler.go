package personnel

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/httpapi"
)

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func Register(mux *http.ServeMux, handler http.Handler) {
	mux.Handle("/personnel", handler)
	mux.Handle("/personnel/", handler)
}

type roleRequest struct {
	Role string `json:"role"`
}

type roleResponse struct {
	ID   uuid.UUID   `json:"id"`
	Role domain.Role `json:"role"`
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := httpapi.Segments(r.URL.Path, "/personnel")
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			activeOnly := false
			if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
				parsed, err := strconv.ParseBool(raw)
				if err != nil {
					httpapi.WriteError(w, fmt.Errorf("%w: invalid active flag %q", domain.ErrValidation, raw))
					return
				}
				activeOnly = parsed
			}
			people, err := h.service.List(r.Context(), activeOnly)
			respond(w, http.StatusOK, people, err)
		case http.MethodPost:
			var person domain.Person
			if err := httpapi.DecodeJSON(r, &person); err != nil {
				httpapi.WriteError(w, err)
				return
			}
			created, err := h.service.Create(r.Context(), person)
			respond(w, http.StatusCreated, created, err)
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
		person, err := h.service.Get(r.Context(), id)
		respond(w, http.StatusOK, person, err)
	case len(parts) == 1 && (r.Method == http.MethodPut || r.Method == http.MethodPatch):
		var person domain.Person
		if err := httpapi.DecodeJSON(r, &person); err != nil {
			httpapi.WriteError(w, err)
			return
		}
		person.ID = id
		updated, err := h.service.Update(r.Context(), person)
		respond(w, http.StatusOK, updated, err)
	case len(parts) == 2 && parts[1] == "active" && r.Method == http.MethodPost:
		var body activeRequest
		if err := httpapi.DecodeJSON(r, &body); err != nil {
			httpapi.WriteError(w, err)
			return
		}
		person, err := h.service.SetActive(r.Context(), id, body.Active)
		respond(w, http.StatusOK, person, err)
	case len(parts) == 2 && parts[1] == "role" && r.Method == http.MethodGet:
		role, err := h.service.Role(r.Context(), id)
		respond(w, http.StatusOK, roleResponse{ID: id, Role: role}, err)
	case len(parts) == 2 && parts[1] == "role" && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		var body roleRequest
		if err := httpapi.DecodeJSON(r, &body); err != nil {
			httpapi.WriteError(w, err)
			return
		}
		person, err := h.service.AssignRole(r.Context(), id, body.Role)
		respond(w, http.StatusOK, person, err)
	default:
		httpapi.NotFound(w)
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
