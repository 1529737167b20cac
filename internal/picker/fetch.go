package picker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/checksum"
	"github.com/starford/idlepick/internal/models"
	"github.com/starford/idlepick/internal/steam"
)

// FetchRequest is the input of a catalog fetch.
type FetchRequest struct {
	APIKey   string         `json:"api_key"`
	Identity string         `json:"identity"`
	Coverage steam.Coverage `json:"coverage"`
}

// Validate implements validation.Validatable.
func (r FetchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.APIKey, validation.Required.Error("Steam Web API key is required")),
		validation.Field(&r.Identity, validation.Required.Error("SteamID64, profile URL or vanity name is required")),
	)
}

// FetchResult reports a successful fetch.
type FetchResult struct {
	SteamID string `json:"steam_id"`
	Total   int    `json:"total"`
	// VaultWarning is set when the catalog was loaded but the credentials
	// could not be remembered.
	VaultWarning string `json:"vault_warning,omitempty"`
}

// Fetch resolves the identity, downloads the owned catalog and, on success,
// replaces the current catalog and clears the selection. On any failure the
// catalog and selection are left as they were. Resolution failure stops
// before the catalog request is made.
func (s *Session) Fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	req.APIKey = strings.TrimSpace(req.APIKey)
	req.Identity = strings.TrimSpace(req.Identity)
	if err := req.Validate(); err != nil {
		return FetchResult{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	steamID, err := steam.ResolveIdentity(ctx, s.steam, req.APIKey, req.Identity)
	if err != nil {
		s.logger.Warn("identity resolution failed", slog.String("error", err.Error()))
		return FetchResult{}, err
	}

	entries, err := s.steam.OwnedGames(ctx, req.APIKey, steamID, req.Coverage)
	if err != nil {
		s.logger.Warn("catalog fetch failed", slog.String("steam_id", steamID), slog.String("error", err.Error()))
		return FetchResult{}, err
	}

	c := &models.Catalog{
		SteamID:   steamID,
		Entries:   entries,
		FetchedAt: s.now(),
		Checksum:  checksum.Entries(entries),
	}

	s.mu.Lock()
	s.catalog = c
	s.sel.Clear()
	s.mu.Unlock()

	s.logger.Info("catalog loaded",
		slog.String("steam_id", steamID),
		slog.Int("entries", c.Len()))

	if s.cache != nil {
		if err := s.cache.ReplaceSnapshot(c); err != nil {
			s.logger.Warn("catalog cache write failed", slog.String("error", err.Error()))
		}
	}

	res := FetchResult{SteamID: steamID, Total: c.Len()}
	if err := s.creds.Save(models.Credential{APIKey: req.APIKey, Identity: req.Identity}); err != nil {
		s.logger.Warn("credentials not saved", slog.String("error", err.Error()))
		res.VaultWarning = err.Error()
	}

	s.emit(Event{Kind: EventCatalogLoaded, Data: CatalogInfo{SteamID: steamID, Total: c.Len(), FetchedAt: c.FetchedAt}})
	return res, nil
}

// Remembered fills a blank APIKey or Identity in req from the vault.
func (s *Session) Remembered(req FetchRequest) (FetchRequest, error) {
	if strings.TrimSpace(req.APIKey) != "" && strings.TrimSpace(req.Identity) != "" {
		return req, nil
	}
	saved, _, err := s.Credentials()
	if err != nil {
		return req, err
	}
	if strings.TrimSpace(req.APIKey) == "" {
		req.APIKey = saved.APIKey
	}
	if strings.TrimSpace(req.Identity) == "" {
		req.Identity = saved.Identity
	}
	return req, nil
}
