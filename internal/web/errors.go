package web

// errors.go turns service errors into HTTP responses.
//
// The technical error is logged with the request ID. The client gets the
// mapped user message as JSON for API routes or an error page otherwise.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/mapfield/internal/core"
	"github.com/JonMunkholm/mapfield/internal/importer"
	"github.com/JonMunkholm/mapfield/internal/logging"
	"github.com/JonMunkholm/mapfield/internal/maptype"
	"github.com/JonMunkholm/mapfield/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// Detail carries the technical error for client mistakes, e.g. the
	// offending dataset line. Never set for server errors.
	Detail string `json:"detail,omitempty"`
}

// errBadRequest marks malformed requests that never reached the service.
var errBadRequest = errors.New("bad request")

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes),
		errors.Is(err, core.ErrDatasetTooLarge),
		errors.Is(err, importer.ErrTooManyRows):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrMapNotFound),
		errors.Is(err, maptype.ErrNoExampleDataset):
		return http.StatusNotFound
	case errors.Is(err, core.ErrMissingMapType),
		errors.Is(err, maptype.ErrUnknownMapType),
		errors.Is(err, core.ErrInvalidConfig),
		errors.Is(err, core.ErrColumnOutOfRange),
		errors.Is(err, core.ErrInvalidDelimiter),
		errors.Is(err, core.ErrMalformedDataset),
		errors.Is(err, core.ErrMalformedRange),
		errors.Is(err, importer.ErrInvalidWorkbook),
		errors.Is(err, importer.ErrSheetNotFound),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyImports),
		errors.Is(err, core.ErrNoStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped user message with statusCode.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if wantsJSON(r) {
		resp := ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		}
		if statusCode < http.StatusInternalServerError {
			resp.Detail = err.Error()
		}
		writeJSONStatus(w, statusCode, resp)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorPage(userMsg, statusCode).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error page", "error", err)
	}
}

// fail responds with the status statusFor picks.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
