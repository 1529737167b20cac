// Package testutil provides shared test helpers: temp directories, a temp
// catalog database, a file-keyed vault and a fake Steam Web API.
package testutil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/starford/idlepick/internal/catalogdb"
	"github.com/starford/idlepick/internal/machine"
	"github.com/starford/idlepick/internal/models"
	"github.com/starford/idlepick/internal/storage"
	"github.com/starford/idlepick/internal/vault"
)

// SteamID is the canonical id the fake server resolves every known vanity to.
const SteamID = "76561198000000001"

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *catalogdb.DB {
	t.Helper()
	db, err := catalogdb.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDir creates a temporary directory with a storage.FS over it.
func TestDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestVault returns a vault sealed with a temp master key and a fixed
// machine diversification.
func TestVault(t *testing.T) *vault.Vault {
	t.Helper()
	dir := t.TempDir()
	p := &vault.AEADProtector{Keys: vault.FileKeySource{Path: filepath.Join(dir, "master.key")}}
	return vault.New(filepath.Join(dir, vault.BlobFile), p, machine.Static("test-machine"), QuietLogger())
}

// SampleGames is a small catalog in service order.
func SampleGames() []models.Entry {
	return []models.Entry{
		{ID: 20, Name: "Team Fortress Classic"},
		{ID: 10, Name: "Counter-Strike"},
		{ID: 30, Name: "Day of Defeat"},
		{ID: 570, Name: "Dota 2"},
		{ID: 4000},
	}
}

// SteamServer is a fake Steam Web API.
type SteamServer struct {
	*httptest.Server
	Games []models.Entry
	// Vanity maps vanity names to SteamID64s.
	Vanity map[string]string
	// Key is the only accepted API key; requests with another key get 403.
	Key string

	OwnedCalls  atomic.Int32
	VanityCalls atomic.Int32
}

// NewSteamServer starts a fake Steam Web API serving games to key.
func NewSteamServer(t *testing.T, key string, games []models.Entry) *SteamServer {
	t.Helper()
	s := &SteamServer{Games: games, Key: key, Vanity: map[string]string{"gaben": SteamID}}

	mux := http.NewServeMux()
	mux.HandleFunc("/ISteamUser/ResolveVanityURL/v1/", func(w http.ResponseWriter, r *http.Request) {
		s.VanityCalls.Add(1)
		if !s.authorized(w, r) {
			return
		}
		resp := map[string]any{"success": 42, "message": "No match"}
		if id, ok := s.Vanity[r.URL.Query().Get("vanityurl")]; ok {
			resp = map[string]any{"success": 1, "steamid": id}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": resp})
	})
	mux.HandleFunc("/IPlayerService/GetOwnedGames/v1/", func(w http.ResponseWriter, r *http.Request) {
		s.OwnedCalls.Add(1)
		if !s.authorized(w, r) {
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"game_count": len(s.Games), "games": s.Games},
		})
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *SteamServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("key") != s.Key {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return false
	}
	return true
}
