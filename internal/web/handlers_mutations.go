package web

import (
	"net/http"
)

// handleListMaps returns all saved maps, most recently updated first.
func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	fields, err := s.service.ListMaps(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]mapFieldResponse, len(fields))
	for i, f := range fields {
		out[i] = toResponse(f)
	}
	writeJSON(w, out)
}

// handleGetMap returns one saved map.
func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	ctx, id := mapContext(r)
	if err := idParam(id); err != nil {
		s.fail(w, r, err)
		return
	}

	field, err := s.service.GetMap(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, toResponse(field))
}

// handleCreateMap validates and saves a new map.
func (s *Server) handleCreateMap(w http.ResponseWriter, r *http.Request) {
	name, doc, err := s.decodeMapRequest(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	field, err := s.service.CreateMap(r.Context(), name, doc)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/maps/"+field.ID)
	writeJSONStatus(w, http.StatusCreated, toResponse(field))
}

// handleUpdateMap replaces the name and document of a saved map.
func (s *Server) handleUpdateMap(w http.ResponseWriter, r *http.Request) {
	ctx, id := mapContext(r)
	if err := idParam(id); err != nil {
		s.fail(w, r, err)
		return
	}

	name, doc, err := s.decodeMapRequest(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	field, err := s.service.UpdateMap(ctx, id, name, doc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, toResponse(field))
}

// handleDeleteMap deletes a saved map.
func (s *Server) handleDeleteMap(w http.ResponseWriter, r *http.Request) {
	ctx, id := mapContext(r)
	if err := idParam(id); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.service.DeleteMap(ctx, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}

// handleRenderMap returns the render call of a saved map.
func (s *Server) handleRenderMap(w http.ResponseWriter, r *http.Request) {
	ctx, id := mapContext(r)
	if err := idParam(id); err != nil {
		s.fail(w, r, err)
		return
	}

	data, _, err := s.service.RenderMap(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
