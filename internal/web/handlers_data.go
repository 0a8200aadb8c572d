package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListMapTypes returns the catalog, or (id, label) options with ?view=options.
func (s *Server) handleListMapTypes(w http.ResponseWriter, r *http.Request) {
	reg := s.service.Registry()
	if r.URL.Query().Get("view") == "options" {
		writeJSON(w, reg.Options())
		return
	}
	writeJSON(w, reg.All())
}

// handleMapTypeExample downloads the example dataset of a map type.
func (s *Server) handleMapTypeExample(w http.ResponseWriter, r *http.Request) {
	desc, data, err := s.service.MapTypeExample(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeExample(w, desc.ExampleDataset, data)
}

// handleExampleFile downloads an example dataset by its file name.
// Only file names listed in the catalog are served.
func (s *Server) handleExampleFile(w http.ResponseWriter, r *http.Request) {
	desc, data, err := s.service.ExampleDataset(chi.URLParam(r, "file"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeExample(w, desc.ExampleDataset, data)
}

func (s *Server) writeExample(w http.ResponseWriter, fileName string, data []byte) {
	attachment(w, "text/csv; charset=utf-8", fileName)
	w.Write(data)
}
