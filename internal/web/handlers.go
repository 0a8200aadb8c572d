package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/mapfield/internal/core"
)

// handleRender renders a stored document posted as the request body.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readBody(w, r, s.maxDocumentBytes())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	call, err := s.service.RenderJSON(r.Context(), doc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, call)
}

// rangesResponse is the classification of a legend ranges text.
type rangesResponse struct {
	DataClasses []core.ColorRange `json:"dataClasses"`
}

// handleRanges classifies the plain-text body as legend ranges.
func (s *Server) handleRanges(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r, 64<<10)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ranges, err := core.ClassifyRanges(string(body))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ranges == nil {
		ranges = []core.ColorRange{}
	}
	writeJSON(w, rangesResponse{DataClasses: ranges})
}

// handleHealth reports liveness and import capacity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"map_types": s.service.Registry().Len(),
		"imports":   s.service.Limiter().Status(),
	})
}

// handleDefaults returns the authoring form's initial document.
func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, core.DefaultStoredConfig())
}

func idParam(id string) error {
	if id == "" {
		return fmt.Errorf("%w: missing map id", errBadRequest)
	}
	return nil
}
