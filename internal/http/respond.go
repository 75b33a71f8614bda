// Package http exposes the ledger as a JSON API: transaction CRUD, CSV
// import, the filtered statement view and the summary aggregates.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"carteira/internal/core"
	"carteira/internal/csvimport"
	"carteira/internal/ledger"
	"carteira/internal/log"
	"carteira/internal/middleware/trace"
	"carteira/internal/remote"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Row   int    `json:"row,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// errorBody enriches the response with the failing field or CSV row when
// the error identifies one.
func errorBody(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}

	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		resp.Field = vErr.Field
	}
	var rowErr *csvimport.RowError
	if errors.As(err, &rowErr) {
		resp.Row = rowErr.Row
	}
	return resp
}

// writeError maps the domain error taxonomy onto status codes: rejected
// input is the client's fault, a missing id is 404, losing to a newer
// mutation is a conflict, and collaborator failures are a bad gateway.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	resp := errorBody(err)

	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			log.FieldRequestID, trace.GetRequestID(r.Context()),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, status,
			log.FieldError, err)
	}

	writeJSON(w, status, resp)
}

func statusForError(err error) int {
	var vErr *core.ValidationError
	var rowErr *csvimport.RowError
	var hdrErr *csvimport.HeaderError
	var reqErr *requestError

	switch {
	case errors.As(err, &vErr),
		errors.As(err, &rowErr),
		errors.As(err, &hdrErr),
		errors.Is(err, csvimport.ErrEmptyFile),
		errors.Is(err, csvimport.ErrMalformedRow):
		return http.StatusUnprocessableEntity
	case errors.As(err, &reqErr),
		errors.Is(err, ledger.ErrEmptyPatch),
		errors.Is(err, ledger.ErrMissingID),
		errors.Is(err, ledger.ErrMissingUser):
		return http.StatusBadRequest
	case errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrSuperseded):
		return http.StatusConflict
	case remote.IsFetchError(err), remote.IsPersistError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
