package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/mapfield/internal/core"
)

// multipartMemory is how much of a workbook is buffered before spilling to disk.
const multipartMemory = 8 << 20

// handleImportXLSX converts one sheet of an uploaded workbook to dataset
// text. Query or form values "sheet" and "delimiter" select the sheet and
// the output delimiter.
func (s *Server) handleImportXLSX(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.fail(w, r, fmt.Errorf("%w: file too large or invalid form: %w", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: no file provided", errBadRequest))
		return
	}
	defer file.Close()

	res, err := s.service.ImportWorkbook(r.Context(), file, core.ImportOptions{
		Sheet:     r.FormValue("sheet"),
		Delimiter: r.FormValue("delimiter"),
	})
	if err != nil {
		s.fail(w, r, fmt.Errorf("import %s: %w", header.Filename, err))
		return
	}
	writeJSON(w, res)
}

// handleImportStatus returns the current state of the import limiter.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Limiter().Status())
}
