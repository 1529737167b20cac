// Package steam talks to the Steam Web API: it resolves user identities to
// SteamID64s and fetches owned-game catalogs.
package steam

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/idlepick/internal/apperr"
)

// VanityLookup resolves a vanity name to a SteamID64.
type VanityLookup interface {
	ResolveVanity(ctx context.Context, apiKey, vanity string) (string, error)
}

// LooksLikeSteamID64 reports whether s is already canonical: at least 17
// ASCII digits starting with "765".
func LooksLikeSteamID64(s string) bool {
	if len(s) < 17 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return strings.HasPrefix(s, "765")
}

// ResolveIdentity normalizes a SteamID64, a profile URL
// (.../profiles/{id} or .../id/{vanity}) or a bare vanity name into a
// SteamID64. Lookup failures wrap apperr.ErrResolution.
func ResolveIdentity(ctx context.Context, lookup VanityLookup, apiKey, input string) (string, error) {
	t := strings.TrimRight(strings.TrimSpace(input), "/")
	if LooksLikeSteamID64(t) {
		return t, nil
	}

	vanity := t
	if hasHTTPScheme(t) {
		if u, err := url.Parse(t); err == nil {
			segs := strings.Split(strings.Trim(u.Path, "/"), "/")
			if len(segs) >= 2 {
				switch {
				case strings.EqualFold(segs[0], "profiles") && LooksLikeSteamID64(segs[1]):
					return segs[1], nil
				case strings.EqualFold(segs[0], "id"):
					vanity = segs[1]
				}
			}
		}
	}

	id, err := lookup.ResolveVanity(ctx, apiKey, vanity)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", apperr.ErrResolution, vanity, err)
	}
	if !LooksLikeSteamID64(id) {
		return "", fmt.Errorf("%w: %q resolved to unexpected id %q", apperr.ErrResolution, vanity, id)
	}
	return id, nil
}

func hasHTTPScheme(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
