package workorders

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/maintops/internal/auth"
	"github.com/rpattn/maintops/internal/domain"
	"github.com/rpattn/maintops/internal/equipmentloader"
	"github.com/rpattn/maintops/internal/httpapi"
)

const maxPhotoUpload = 32 << 20

// Handler serves /work-orders, /checklist-items, /observations and /photos.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with the work order REST endpoints.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

// Register mounts the handler on every path prefix it serves.
func Register(mux *http.ServeMux, handler http.Handler) {
	mux.Handle("/work-orders", handler)
	mux.Handle("/work-orders/", handler)
	mux.Handle("/checklist-items/", handler)
	mux.Handle("/observations/", handler)
	mux.Handle("/photos/", handler)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/checklist-items/"):
		h.serveChecklistItem(w, r, httpapi.Segments(r.URL.Path, "/checklist-items"))
	case strings.HasPrefix(r.URL.Path, "/observations/"):
		h.serveObservation(w, r, httpapi.Segments(r.URL.Path, "/observations"))
	case strings.HasPrefix(r.URL.Path, "/photos/"):
		h.servePhoto(w, r, httpapi.Segments(r.URL.Path, "/photos"))
	case strings.HasPrefix(r.URL.Path, "/work-orders"):
		h.serveWorkOrders(w, r, httpapi.Segments(r.URL.Path, "/work-orders"))
	default:
		httpapi.NotFound(w)
	}
}

func (h *Handler) serveWorkOrders(w http.ResponseWriter, r *http.Request, parts []string) {
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

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			wo, err := h.service.Get(r.Context(), id)
			if err != nil {
				httpapi.WriteError(w, err)
				return
			}
			httpapi.WriteJSON(w, http.StatusOK, wo)
		case http.MethodPatch, http.MethodPut:
			h.handleEdit(w, r, id)
		case http.MethodDelete:
			if err := h.service.Delete(r.Context(), id); err != nil {
				httpapi.WriteError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch action := strings.Join(parts[1:], "/"); {
	case r.Method == http.MethodPost && isTransition(action):
		h.handleTransition(w, r, id, action)
	case r.Method == http.MethodGet && action == "history":
		records, err := h.service.History(r.Context(), id)
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, records)
	case r.Method == http.MethodGet && action == "checklist":
		items, err := h.service.Checklist(r.Context(), id)
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, checklistResponse{Items: items, Progress: domain.SummarizeChecklist(items)})
	case r.Method == http.MethodPost && action == "checklist/provision":
		items, err := h.service.ProvisionChecklist(r.Context(), id)
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, checklistResponse{Items: items, Progress: domain.SummarizeChecklist(items)})
	case action == "observations":
		h.handleObservations(w, r, id)
	case action == "photos":
		h.handlePhotos(w, r, id)
	default:
		httpapi.NotFound(w)
	}
}

type listResponse struct {
	Items []workOrderView `json:"items"`
	Total int             `json:"total"`
}

type workOrderView struct {
	domain.WorkOrder
	Equipment *equipmentloader.Summary `json:"equipment,omitempty"`
}

type checklistResponse struct {
	Items    []domain.ChecklistItem   `json:"items"`
	Progress domain.ChecklistProgress `json:"progress"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type editResponse struct {
	Changed bool   `json:"changed"`
	Message string `json:"message,omitempty"`
	*TransitionResult
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	orders, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}

	views := make([]workOrderView, len(orders))
	var linked []uuid.UUID
	for i, wo := range orders {
		views[i] = workOrderView{WorkOrder: wo}
		if wo.EquipmentID != nil {
			linked = append(linked, *wo.EquipmentID)
		}
	}
	if loader := equipmentloader.FromContext(r.Context()); loader != nil && len(linked) > 0 {
		summaries, err := loader.LoadSummaries(r.Context(), linked)
		if err != nil {
			log.Printf("[WORKORDER] failed to load linked equipment: %v", err)
		} else {
			for i := range views {
				if views[i].EquipmentID == nil {
					continue
				}
				if summary, ok := summaries[*views[i].EquipmentID]; ok {
					views[i].Equipment = &summary
				}
			}
		}
	}

	httpapi.WriteJSON(w, http.StatusOK, listResponse{Items: views, Total: total})
}

func parseFilter(r *http.Request) (domain.WorkOrderFilter, error) {
	query := r.URL.Query()
	filter := domain.WorkOrderFilter{Technician: strings.TrimSpace(query.Get("technician"))}

	if raw := strings.TrimSpace(query.Get("state")); raw != "" {
		state, err := domain.ParseWorkOrderState(raw)
		if err != nil {
			return filter, err
		}
		filter.State = state
	}
	if raw := strings.TrimSpace(query.Get("equipment_id")); raw != "" {
		id, err := httpapi.ParseID(raw)
		if err != nil {
			return filter, err
		}
		filter.EquipmentID = &id
	}
	for key, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, fmt.Errorf("%w: %s must be YYYY-MM-DD", domain.ErrValidation, key)
		}
		*dst = &parsed
	}

	var err error
	if filter.Limit, err = httpapi.QueryInt(r, "limit", 50); err != nil {
		return filter, err
	}
	if filter.Offset, err = httpapi.QueryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpapi.DecodeJSON(r, &input); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	wo, items, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, struct {
		domain.WorkOrder
		Checklist []domain.ChecklistItem `json:"checklist"`
	}{wo, items})
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var patch domain.WorkOrderPatch
	if err := httpapi.DecodeJSON(r, &patch); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	result, err := h.service.Edit(r.Context(), id, patch, auth.Actor(r.Context()))
	if errors.Is(err, ErrNoChanges) {
		httpapi.WriteJSON(w, http.StatusOK, editResponse{Changed: false, Message: ErrNoChanges.Error()})
		return
	}
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, editResponse{Changed: true, TransitionResult: &result})
}

func isTransition(action string) bool {
	switch action {
	case "start", "pause", "resume", "complete", "cancel":
		return true
	}
	return false
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, id uuid.UUID, action string) {
	var body noteRequest
	if r.ContentLength != 0 {
		if err := httpapi.DecodeJSON(r, &body); err != nil {
			httpapi.WriteError(w, err)
			return
		}
	}

	var (
		result TransitionResult
		err    error
	)
	switch action {
	case "start":
		result, err = h.service.Start(r.Context(), id, body.Note)
	case "pause":
		result, err = h.service.Pause(r.Context(), id, body.Note)
	case "resume":
		result, err = h.service.Resume(r.Context(), id, body.Note)
	case "complete":
		result, err = h.service.Complete(r.Context(), id, body.Note)
	case "cancel":
		result, err = h.service.Cancel(r.Context(), id, body.Note)
	}
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleObservations(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	switch r.Method {
	case http.MethodGet:
		observations, err := h.service.Observations(r.Context(), id)
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, observations)
	case http.MethodPost:
		var body struct {
			Kind string `json:"kind"`
			Text string `json:"text"`
		}
		if err := httpapi.DecodeJSON(r, &body); err != nil {
			httpapi.WriteError(w, err)
			return
		}
		observation, err := h.service.AddObservation(r.Context(), id, body.Kind, body.Text)
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusCreated, observation)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) handlePhotos(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	switch r.Method {
	case http.MethodGet:
		photos, err := h.service.Photos(r.Context(), id)
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, photos)
	case http.MethodPost:
		if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
			httpapi.WriteError(w, fmt.Errorf("%w: invalid form data: %v", domain.ErrValidation, err))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			httpapi.WriteError(w, fmt.Errorf("%w: file required: %v", domain.ErrValidation, err))
			return
		}
		defer file.Close()

		photo, err := h.service.UploadPhoto(r.Context(), id, header.Filename, file, r.FormValue("caption"))
		if err != nil {
			httpapi.WriteError(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusCreated, photo)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) serveChecklistItem(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) != 1 {
		httpapi.NotFound(w)
		return
	}
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	id, err := httpapi.ParseID(parts[0])
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	var body struct {
		Completed *bool   `json:"completed,omitempty"`
		Notes     *string `json:"notes,omitempty"`
	}
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if body.Completed == nil && body.Notes == nil {
		httpapi.WriteError(w, fmt.Errorf("%w: completed or notes is required", domain.ErrValidation))
		return
	}

	var item domain.ChecklistItem
	if body.Completed != nil {
		if item, err = h.service.SetChecklistItemCompleted(r.Context(), id, *body.Completed); err != nil {
			httpapi.WriteError(w, err)
			return
		}
	}
	if body.Notes != nil {
		if item, err = h.service.SetChecklistItemNotes(r.Context(), id, *body.Notes); err != nil {
			httpapi.WriteError(w, err)
			return
		}
	}
	httpapi.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) serveObservation(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) != 1 || r.Method != http.MethodDelete {
		httpapi.NotFound(w)
		return
	}
	id, err := httpapi.ParseID(parts[0])
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if err := h.service.DeleteObservation(r.Context(), id); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) servePhoto(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) != 1 || r.Method != http.MethodDelete {
		httpapi.NotFound(w)
		return
	}
	id, err := httpapi.ParseID(parts[0])
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}
	if err := h.service.DeletePhoto(r.Context(), id); err != nil {
		httpapi.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func methodNotAllowed(w http.ResponseWriter) {
	httpapi.WriteJSON(w, http.StatusMethodNotAllowed, httpapi.ErrorBody{Error: "method not allowed"})
}
