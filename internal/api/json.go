package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/idlepick/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps the error taxonomy onto HTTP statuses. Unknown errors are
// logged and reported as internal.
func writeError(w http.ResponseWriter, op string, err error) {
	status, kind := http.StatusInternalServerError, ""
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, apperr.ErrResolution):
		status, kind = http.StatusUnprocessableEntity, "resolution"
	case errors.Is(err, apperr.ErrTransport):
		status, kind = http.StatusBadGateway, "transport"
	case errors.Is(err, apperr.ErrEmptySelection):
		status, kind = http.StatusConflict, "empty_selection"
	case errors.Is(err, apperr.ErrNoCatalog):
		status, kind = http.StatusConflict, "no_catalog"
	case errors.Is(err, apperr.ErrImportSourceUnreadable):
		status, kind = http.StatusBadRequest, "import_unreadable"
	case errors.Is(err, apperr.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	}
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errResponse{Error: err.Error(), Kind: kind})
}
