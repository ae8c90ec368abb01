package middleware

import (
	"net/http"

	"github.com/rpattn/maintops/internal/equipmentloader"
	"github.com/rpattn/maintops/internal/repository"
)

// DataLoaderMiddleware attaches a fresh equipment loader to every request so
// batching and caching never span requests.
func DataLoaderMiddleware(repo repository.EquipmentRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := equipmentloader.NewEquipmentLoader(repo)
			ctx := equipmentloader.WithLoader(r.Context(), loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
