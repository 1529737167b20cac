// Package picker is the session service every host talks to. It owns the
// current catalog snapshot and the selection, and serializes access to them.
package picker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/catalogdb"
	"github.com/starford/idlepick/internal/filterview"
	"github.com/starford/idlepick/internal/models"
	"github.com/starford/idlepick/internal/selection"
	"github.com/starford/idlepick/internal/steam"
	"github.com/starford/idlepick/internal/vault"
)

// Steam is the remote side of a fetch.
type Steam interface {
	steam.VanityLookup
	steam.CatalogSource
}

// Credentials is the credential vault as the session uses it.
type Credentials interface {
	Save(cred models.Credential) error
	Load() (models.Credential, vault.State, error)
	Forget()
}

// Session coordinates the catalog, the selection and the collaborators.
// Every exported method is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	fetchMu sync.Mutex // one fetch in flight

	catalog *models.Catalog
	sel     *selection.Store

	steam   Steam
	creds   Credentials
	cache   catalogdb.Cache
	view    filterview.View
	logger  *slog.Logger
	onEvent EventFunc
	now     func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithCache persists fetched snapshots and enables Restore.
func WithCache(c catalogdb.Cache) Option {
	return func(s *Session) { s.cache = c }
}

// WithView sets the ordering used for rendering and export.
func WithView(v filterview.View) Option {
	return func(s *Session) { s.view = v }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithEvents registers a change callback. It is invoked after the session
// lock is released, so it may call back into the session.
func WithEvents(fn EventFunc) Option {
	return func(s *Session) { s.onEvent = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session with no catalog and an empty selection.
func New(st Steam, creds Credentials, opts ...Option) *Session {
	s := &Session{
		sel:    selection.New(),
		steam:  st,
		creds:  creds,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "picker"))
	return s
}

// Catalog returns the current snapshot, or nil before the first fetch.
// The snapshot is immutable once published.
func (s *Session) Catalog() *models.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Restore loads the last cached snapshot. The selection starts empty.
func (s *Session) Restore() error {
	if s.cache == nil {
		return apperr.ErrNoCatalog
	}
	c, err := s.cache.Latest()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.catalog = c
	s.sel.Clear()
	s.mu.Unlock()

	s.logger.Info("catalog restored",
		slog.String("steam_id", c.SteamID),
		slog.Int("entries", c.Len()))
	s.emit(Event{Kind: EventCatalogLoaded, Data: CatalogInfo{SteamID: c.SteamID, Total: c.Len(), FetchedAt: c.FetchedAt, Restored: true}})
	return nil
}

// Credentials returns the remembered API key and identity.
func (s *Session) Credentials() (models.Credential, vault.State, error) {
	return s.creds.Load()
}

// Forget erases the remembered credentials. The catalog and selection stay.
func (s *Session) Forget() {
	s.creds.Forget()
	s.emit(Event{Kind: EventCredentialsForgotten})
}

// DropCatalog unloads the catalog, empties the selection and deletes the
// cached snapshot, so the next start has nothing to restore.
func (s *Session) DropCatalog() error {
	if s.cache != nil {
		if err := s.cache.Clear(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.catalog = nil
	s.sel.Clear()
	s.mu.Unlock()

	s.logger.Info("catalog dropped")
	s.emit(Event{Kind: EventCatalogCleared})
	return nil
}
