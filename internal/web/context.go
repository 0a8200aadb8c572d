package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/mapfield/internal/logging"
	"github.com/go-chi/chi/v5"
)

// mapContext returns the request context tagged with the {id} route
// parameter, so service logs carry map_id.
func mapContext(r *http.Request) (context.Context, string) {
	id := chi.URLParam(r, "id")
	return logging.WithMapID(r.Context(), id), id
}
