package api

import (
	"github.com/starford/idlepick/internal/picker"
	"github.com/starford/idlepick/internal/steam"
)

// FetchRequest is the body of POST /api/fetch. Missing fields are filled
// from the remembered credentials.
type FetchRequest struct {
	APIKey   string          `json:"api_key,omitempty"`
	Identity string          `json:"identity,omitempty"`
	Coverage *steam.Coverage `json:"coverage,omitempty"`
}

// GameRow is one rendered catalog row.
type GameRow struct {
	AppID   uint32 `json:"appid" example:"570"`
	Name    string `json:"name" example:"Dota 2"`
	Checked bool   `json:"checked"`
}

// GamesResponse wraps the visible rows.
type GamesResponse struct {
	Games   []GameRow      `json:"games"`
	Summary picker.Summary `json:"summary"`
}

// SelectionResponse lists the selected ids.
type SelectionResponse struct {
	IDs     []uint32       `json:"ids"`
	Summary picker.Summary `json:"summary"`
}

// VisibleRequest is the body of POST /api/selection/visible.
type VisibleRequest struct {
	Query   string `json:"query"`
	Checked bool   `json:"checked"`
}

// ChangedResponse reports how many ids a bulk operation touched.
type ChangedResponse struct {
	Changed  int `json:"changed"`
	Selected int `json:"selected"`
}

// ToggleResponse reports the new state of one id.
type ToggleResponse struct {
	AppID   uint32 `json:"appid"`
	Checked bool   `json:"checked"`
}

// CredentialsResponse describes the remembered credentials. The API key
// itself is never returned.
type CredentialsResponse struct {
	State     string `json:"state" example:"present"`
	Identity  string `json:"identity,omitempty"`
	HasAPIKey bool   `json:"has_api_key"`
}
