package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"docflow/internal/middleware"
	"docflow/internal/workflow"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := JSONResponse(w, payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// statusFor maps a workflow error kind to its HTTP status
func statusFor(err error) int {
	switch workflow.KindOf(err) {
	case workflow.ErrForbidden:
		return http.StatusForbidden
	case workflow.ErrInvalidState, workflow.ErrConflict:
		// both kinds share 409; the error message tells them apart
		return http.StatusConflict
	case workflow.ErrInvalidInput:
		return http.StatusBadRequest
	case workflow.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes err as a JSON error. Storage and unclassified
// failures are logged and never leak their cause to the client.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed",
			"request_id", middleware.GetRequestID(r),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		respondWithError(w, status, ErrMsgInternal)
		return
	}

	resp := ErrorResponse{Error: err.Error(), Field: workflow.FieldOf(err)}
	var werr *workflow.Error
	if errors.As(err, &werr) && werr.Msg != "" {
		resp.Error = werr.Msg
	}
	respondWithJSON(w, status, resp)
}

func parseDocumentID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// decodeJSON decodes an optional request body into v; an empty body leaves v untouched
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
