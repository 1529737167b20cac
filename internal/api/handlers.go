package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/models"
	"github.com/starford/idlepick/internal/picker"
	"github.com/starford/idlepick/internal/steam"
	"github.com/starford/idlepick/internal/storage"
)

const maxImportBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc      *picker.Session
	exports  storage.Provider
	coverage steam.Coverage
}

// NewHandler creates a new Handler.
func NewHandler(svc *picker.Session, exports storage.Provider, coverage steam.Coverage) *Handler {
	return &Handler{svc: svc, exports: exports, coverage: coverage}
}

func appID(r *http.Request) (models.AppID, error) {
	n, err := strconv.ParseUint(chi.URLParam(r, "appid"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: appid must be an unsigned integer", apperr.ErrValidation)
	}
	return models.AppID(n), nil
}

// Fetch handles POST /api/fetch.
//
//	@Summary		Resolve the identity and load the owned catalog
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FetchRequest	false	"Credentials and coverage"
//	@Success		200		{object}	picker.FetchResult
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/fetch [post]
func (h *Handler) Fetch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	cov := h.coverage
	if req.Coverage != nil {
		cov = *req.Coverage
	}
	fr, err := h.svc.Remembered(picker.FetchRequest{APIKey: req.APIKey, Identity: req.Identity, Coverage: cov})
	if err != nil {
		writeError(w, "load credentials", err)
		return
	}

	res, err := h.svc.Fetch(r.Context(), fr)
	if err != nil {
		writeError(w, "fetch", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListGames handles GET /api/games?q=.
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	rows := h.svc.Render(q)
	out := GamesResponse{Games: make([]GameRow, len(rows)), Summary: h.svc.Summary(q)}
	for i, row := range rows {
		out.Games[i] = GameRow{AppID: uint32(row.Entry.ID), Name: row.Name, Checked: row.Checked}
	}
	writeJSON(w, http.StatusOK, out)
}

// Summary handles GET /api/summary?q=.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum := h.svc.Summary(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": sum,
		"status":  sum.String(),
	})
}

// GetSelection handles GET /api/selection.
func (h *Handler) GetSelection(w http.ResponseWriter, _ *http.Request) {
	ids := h.svc.SelectedIDs()
	out := SelectionResponse{IDs: make([]uint32, len(ids)), Summary: h.svc.Summary("")}
	for i, id := range ids {
		out.IDs[i] = uint32(id)
	}
	writeJSON(w, http.StatusOK, out)
}

// ClearSelection handles DELETE /api/selection.
func (h *Handler) ClearSelection(w http.ResponseWriter, _ *http.Request) {
	n := h.svc.ClearAll()
	writeJSON(w, http.StatusOK, ChangedResponse{Changed: n})
}

// SetVisible handles POST /api/selection/visible.
func (h *Handler) SetVisible(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req VisibleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	var n int
	if req.Checked {
		n = h.svc.SelectVisible(req.Query)
	} else {
		n = h.svc.DeselectVisible(req.Query)
	}
	writeJSON(w, http.StatusOK, ChangedResponse{Changed: n, Selected: len(h.svc.SelectedIDs())})
}

// CheckGame handles PUT /api/selection/{appid}.
func (h *Handler) CheckGame(w http.ResponseWriter, r *http.Request) {
	h.setGame(w, r, true)
}

// UncheckGame handles DELETE /api/selection/{appid}.
func (h *Handler) UncheckGame(w http.ResponseWriter, r *http.Request) {
	h.setGame(w, r, false)
}

func (h *Handler) setGame(w http.ResponseWriter, r *http.Request, on bool) {
	id, err := appID(r)
	if err != nil {
		writeError(w, "select", err)
		return
	}
	if on {
		err = h.svc.Check(id)
	} else {
		err = h.svc.Uncheck(id)
	}
	if err != nil {
		writeError(w, "select", err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{AppID: uint32(id), Checked: on})
}

// ToggleGame handles POST /api/selection/{appid}/toggle.
func (h *Handler) ToggleGame(w http.ResponseWriter, r *http.Request) {
	id, err := appID(r)
	if err != nil {
		writeError(w, "toggle", err)
		return
	}
	on, err := h.svc.Toggle(id)
	if err != nil {
		writeError(w, "toggle", err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{AppID: uint32(id), Checked: on})
}

// Export handles POST /api/export.
//
//	@Summary		Write games.ps1, selected_games.csv and start.bat
//	@Tags			artifacts
//	@Produce		json
//	@Success		200		{object}	picker.ExportResult
//	@Failure		409		{object}	errResponse
//	@Router			/export [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Export(r.Context(), h.exports)
	if err != nil {
		writeError(w, "export", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Import handles POST /api/import with a CSV request body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)
	res, err := h.svc.Import(r.Body)
	if err != nil {
		writeError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetCredentials handles GET /api/credentials.
func (h *Handler) GetCredentials(w http.ResponseWriter, _ *http.Request) {
	cred, state, err := h.svc.Credentials()
	if err != nil {
		writeError(w, "credentials", err)
		return
	}
	writeJSON(w, http.StatusOK, CredentialsResponse{
		State:     state.String(),
		Identity:  cred.Identity,
		HasAPIKey: cred.APIKey != "",
	})
}

// ForgetCredentials handles DELETE /api/credentials.
func (h *Handler) ForgetCredentials(w http.ResponseWriter, _ *http.Request) {
	h.svc.Forget()
	w.WriteHeader(http.StatusNoContent)
}

// DropCatalog handles DELETE /api/catalog.
func (h *Handler) DropCatalog(w http.ResponseWriter, _ *http.Request) {
	if err := h.svc.DropCatalog(); err != nil {
		writeError(w, "drop catalog", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
