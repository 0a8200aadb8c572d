package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/mapfield/internal/core"
)

// minDocumentBytes is the smallest body limit for stored documents.
const minDocumentBytes = 1 << 20

// maxDocumentBytes bounds request bodies that carry a stored document.
// The document holds series.data plus a few kilobytes of settings.
func (s *Server) maxDocumentBytes() int64 {
	limit := s.cfg.Render.MaxDatasetBytes * 2
	if limit < minDocumentBytes {
		limit = minDocumentBytes
	}
	return limit
}

// readBody reads a size-limited request body.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// mapRequest is the body of create and update calls. Config is the stored
// document, given either as a JSON object or as a string holding one.
type mapRequest struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

// document returns the stored document bytes.
func (m mapRequest) document() ([]byte, error) {
	raw := bytes.TrimSpace(m.Config)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: config is required", core.ErrInvalidConfig)
	}
	if raw[0] != '"' {
		return raw, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}
	return []byte(text), nil
}

func (s *Server) decodeMapRequest(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	body, err := s.readBody(w, r, s.maxDocumentBytes())
	if err != nil {
		return "", nil, err
	}

	var req mapRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", nil, fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	doc, err := req.document()
	if err != nil {
		return "", nil, err
	}
	return req.Name, doc, nil
}

// mapFieldResponse is a saved map with its document inlined as JSON.
type mapFieldResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"config"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

func toResponse(field core.MapField) mapFieldResponse {
	resp := mapFieldResponse{
		ID:        field.ID,
		Name:      field.Name,
		Config:    json.RawMessage(field.ConfigJSON),
		CreatedAt: field.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: field.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if !json.Valid(resp.Config) {
		quoted, _ := json.Marshal(field.ConfigJSON)
		resp.Config = quoted
	}
	return resp
}

// attachment sets headers for a file download.
func attachment(w http.ResponseWriter, contentType, fileName string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(fileName))
}
