package steam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/idlepick/internal/apperr"
)

const canonical = "76561198000000001"

type lookupFunc func(ctx context.Context, key, vanity string) (string, error)

func (f lookupFunc) ResolveVanity(ctx context.Context, key, vanity string) (string, error) {
	return f(ctx, key, vanity)
}

func noLookup(t *testing.T) VanityLookup {
	return lookupFunc(func(context.Context, string, string) (string, error) {
		t.Fatal("unexpected vanity lookup")
		return "", nil
	})
}

func TestLooksLikeSteamID64(t *testing.T) {
	cases := map[string]bool{
		canonical:            true,
		"765611980000000011": true,
		"7656119800000000":   false,
		"12345678901234567":  false,
		"7656119800000000a":  false,
		"":                   false,
	}
	for in, want := range cases {
		assert.Equal(t, want, LooksLikeSteamID64(in), in)
	}
}

func TestResolveIdentityPassthrough(t *testing.T) {
	for _, in := range []string{
		canonical,
		"  " + canonical + "  ",
		canonical + "/",
		"https://steamcommunity.com/profiles/" + canonical,
		"https://steamcommunity.com/profiles/" + canonical + "/",
		"HTTP://steamcommunity.com/Profiles/" + canonical,
	} {
		got, err := ResolveIdentity(context.Background(), noLookup(t), "k", in)
		require.NoError(t, err, in)
		assert.Equal(t, canonical, got, in)
	}
}

func TestResolveIdentityVanity(t *testing.T) {
	var seen []string
	lookup := lookupFunc(func(_ context.Context, key, vanity string) (string, error) {
		assert.Equal(t, "KEY", key)
		seen = append(seen, vanity)
		return canonical, nil
	})

	for _, in := range []string{"gaben", "https://steamcommunity.com/id/gaben/", "https://steamcommunity.com/id/gaben"} {
		got, err := ResolveIdentity(context.Background(), lookup, "KEY", in)
		require.NoError(t, err)
		assert.Equal(t, canonical, got)
	}
	assert.Equal(t, []string{"gaben", "gaben", "gaben"}, seen)
}

func TestResolveIdentityFailure(t *testing.T) {
	lookup := lookupFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("no match")
	})
	_, err := ResolveIdentity(context.Background(), lookup, "k", "nobody")
	require.ErrorIs(t, err, apperr.ErrResolution)

	odd := lookupFunc(func(context.Context, string, string) (string, error) { return "42", nil })
	_, err = ResolveIdentity(context.Background(), odd, "k", "nobody")
	require.ErrorIs(t, err, apperr.ErrResolution)
}

func TestCoverageEffective(t *testing.T) {
	got := Coverage{Max: true, SkipUnvetted: true}.Effective()
	assert.True(t, got.IncludePlayedFree)
	assert.True(t, got.IncludeFreeSub)
	assert.False(t, got.SkipUnvetted)

	manual := Coverage{IncludeFreeSub: true, SkipUnvetted: true}
	assert.Equal(t, manual, manual.Effective())
}

func TestClientOwnedGames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ownedGamesPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "KEY", q.Get("key"))
		assert.Equal(t, canonical, q.Get("steamid"))
		assert.Equal(t, "1", q.Get("include_appinfo"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "1", q.Get("include_played_free_games"))
		assert.Equal(t, "0", q.Get("include_free_sub"))
		assert.Equal(t, "true", q.Get("skip_unvetted_apps"))
		assert.Equal(t, "idlepick/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"response":{"game_count":2,"games":[{"appid":570,"name":"Dota 2"},{"appid":10}]}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, UserAgent: "idlepick/test"})
	games, err := c.OwnedGames(context.Background(), "KEY", canonical,
		Coverage{IncludePlayedFree: true, SkipUnvetted: true})
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.EqualValues(t, 570, games[0].ID)
	assert.Equal(t, "Dota 2", games[0].Name)
	assert.Equal(t, "Item 10", games[1].DisplayName())
}

func TestClientOwnedGamesEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":{}}`))
	}))
	defer srv.Close()

	games, err := NewClient(Options{BaseURL: srv.URL}).OwnedGames(context.Background(), "k", canonical, DefaultCoverage())
	require.NoError(t, err)
	assert.NotNil(t, games)
	assert.Empty(t, games)
}

func TestClientTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "GetOwnedGames") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	_, err := c.OwnedGames(context.Background(), "SECRETKEY", canonical, DefaultCoverage())
	require.ErrorIs(t, err, apperr.ErrTransport)
	assert.NotContains(t, err.Error(), "SECRETKEY")

	_, err = c.ResolveVanity(context.Background(), "SECRETKEY", "x")
	require.ErrorIs(t, err, apperr.ErrTransport)
}

func TestClientUnreachableRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(Options{BaseURL: base, Timeout: time.Second})
	_, err := c.OwnedGames(context.Background(), "SECRETKEY", canonical, DefaultCoverage())
	require.ErrorIs(t, err, apperr.ErrTransport)
	assert.NotContains(t, err.Error(), "SECRETKEY")
}

func TestClientResolveVanity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, resolveVanityPath, r.URL.Path)
		if r.URL.Query().Get("vanityurl") == "gaben" {
			_, _ = w.Write([]byte(`{"response":{"steamid":"` + canonical + `","success":1}}`))
			return
		}
		_, _ = w.Write([]byte(`{"response":{"success":42,"message":"No match"}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	id, err := ResolveIdentity(context.Background(), c, "k", "https://steamcommunity.com/id/gaben")
	require.NoError(t, err)
	assert.Equal(t, canonical, id)

	_, err = ResolveIdentity(context.Background(), c, "k", "nobody")
	require.ErrorIs(t, err, apperr.ErrResolution)
	assert.Contains(t, err.Error(), "No match")
}

func TestClientRateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"response":{}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RequestsPerSecond: 0.001})
	_, err := c.OwnedGames(context.Background(), "k", canonical, DefaultCoverage())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.OwnedGames(ctx, "k", canonical, DefaultCoverage())
	require.ErrorIs(t, err, apperr.ErrTransport)
	assert.EqualValues(t, 1, hits.Load())
}
