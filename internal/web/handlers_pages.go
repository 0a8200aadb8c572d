package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/mapfield/internal/core"
	"github.com/JonMunkholm/mapfield/internal/logging"
	"github.com/JonMunkholm/mapfield/internal/web/templates"
)

// handleIndex lists saved maps and the available map types.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fields, err := s.service.ListMaps(ctx)
	if err != nil && !errors.Is(err, core.ErrNoStore) {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(fields, s.service.Registry().All()).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render index", "error", err)
	}
}

// handleMapPage renders a saved map into its mount point.
func (s *Server) handleMapPage(w http.ResponseWriter, r *http.Request) {
	ctx, id := mapContext(r)

	data, field, err := s.service.RenderMap(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var call struct {
		MountPoint string `json:"mountPoint"`
	}
	if err := json.Unmarshal(data, &call); err != nil || call.MountPoint == "" {
		call.MountPoint = s.cfg.Render.MountPoint
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.MapPage(field, call.MountPoint, data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render map page", "error", err)
	}
}
