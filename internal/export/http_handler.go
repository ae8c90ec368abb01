package export

import (
	"bytes"
	"fmt"
	"log"
	"net/http"

	"github.com/rpattn/maintops/internal/httpapi"
)

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

// Register mounts the handler under /exports/.
func Register(mux *http.ServeMux, handler http.Handler) {
	mux.Handle("/exports/", handler)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := httpapi.Segments(r.URL.Path, "/exports")
	if len(parts) != 1 || parts[0] != "equipment" {
		httpapi.NotFound(w)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		httpapi.WriteJSON(w, http.StatusMethodNotAllowed, httpapi.ErrorBody{Error: "method not allowed"})
		return
	}

	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpapi.WriteError(w, err)
		return
	}

	// Buffer so a listing failure can still produce a JSON error.
	var body bytes.Buffer
	if _, err := h.service.Equipment(r.Context(), format, &body); err != nil {
		httpapi.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.service.FileName(format)))
	w.WriteHeader(http.StatusOK)
	if _, err := body.WriteTo(w); err != nil {
		log.Printf("[EXPORT] failed to stream response: %v", err)
	}
}
