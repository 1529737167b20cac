package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/idlepick/internal/picker"
	"github.com/starford/idlepick/internal/steam"
	"github.com/starford/idlepick/internal/storage"
)

// Options configures the router.
type Options struct {
	// Exports is where POST /export writes the artifacts.
	Exports storage.Provider
	// Coverage applies to fetches that do not specify one.
	Coverage    steam.Coverage
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *picker.Session, opts Options) chi.Router {
	h := NewHandler(svc, opts.Exports, opts.Coverage)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token))

	// Catalog.
	r.Post("/fetch", h.Fetch)
	r.Get("/games", h.ListGames)
	r.Get("/summary", h.Summary)

	// Selection.
	r.Route("/selection", func(r chi.Router) {
		r.Get("/", h.GetSelection)
		r.Delete("/", h.ClearSelection)
		r.Post("/visible", h.SetVisible)
		r.Put("/{appid}", h.CheckGame)
		r.Delete("/{appid}", h.UncheckGame)
		r.Post("/{appid}/toggle", h.ToggleGame)
	})

	// Artifacts.
	r.Post("/export", h.Export)
	r.Post("/import", h.Import)

	// Credentials.
	r.Get("/credentials", h.GetCredentials)
	r.Delete("/credentials", h.ForgetCredentials)
	r.Delete("/catalog", h.DropCatalog)

	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}
