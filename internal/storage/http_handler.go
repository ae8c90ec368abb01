package storage

import (
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"path"
	"strings"
)

// FileHandler serves blobs at {prefix}/{key}?token=... after checking the
// signed token.
type FileHandler struct {
	store  *LocalStore
	prefix string
}

// NewFileHandler returns a handler that strips prefix from request paths.
func NewFileHandler(store *LocalStore, prefix string) http.Handler {
	return &FileHandler{store: store, prefix: "/" + strings.Trim(prefix, "/") + "/"}
}

func (h *FileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, h.prefix)
	if key == "" || key == r.URL.Path {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err := h.store.Verify(key, r.URL.Query().Get("token")); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	body, err := h.store.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer body.Close()

	if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("[STORAGE] failed to stream %s: %v", key, err)
	}
}
