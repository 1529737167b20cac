package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/idlepick/internal/codec"
	"github.com/starford/idlepick/internal/models"
	"github.com/starford/idlepick/internal/picker"
	"github.com/starford/idlepick/internal/steam"
	"github.com/starford/idlepick/internal/testutil"
	"github.com/starford/idlepick/internal/vault"
)

const apiKey = "TESTKEY"

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

type harness struct {
	svc   *picker.Session
	vault *vault.Vault
	dir   string
	m     Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := testutil.NewSteamServer(t, apiKey, testutil.SampleGames())
	v := testutil.TestVault(t)
	svc := picker.New(steam.NewClient(steam.Options{BaseURL: srv.URL}), v,
		picker.WithLogger(testutil.QuietLogger()))
	dir, out := testutil.TestDir(t)
	return &harness{svc: svc, vault: v, dir: dir, m: New(svc, out, steam.DefaultCoverage())}
}

func (h *harness) send(t *testing.T, msg tea.Msg) {
	t.Helper()
	next, _ := h.m.Update(msg)
	h.m = next.(Model)
}

// run feeds msg to the model, then runs the returned command and feeds its
// result back in.
func (h *harness) run(t *testing.T, msg tea.Msg) {
	t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	require.NotNil(t, cmd)
	next, _ = h.m.Update(cmd())
	h.m = next.(Model)
}

func (h *harness) fetched(t *testing.T) {
	t.Helper()
	require.NoError(t, h.vault.Save(models.Credential{APIKey: apiKey, Identity: "gaben"}))
	h.run(t, runes("r"))
	require.NoError(t, h.m.err)
	require.Len(t, h.m.rows, 5)
}

func TestEmptyPickerShowsNoCatalog(t *testing.T) {
	h := newHarness(t)
	assert.Empty(t, h.m.rows)
	assert.Contains(t, h.m.View(), "No catalog loaded | Selected: 0")
	assert.Contains(t, h.m.View(), "(no games)")
}

func TestRefetchWithoutCredentials(t *testing.T) {
	h := newHarness(t)
	h.run(t, runes("r"))
	require.Error(t, h.m.err)
	assert.Contains(t, h.m.message, "idlepick login")
	assert.False(t, h.m.busy)
}

func TestRefetchLoadsSortedRows(t *testing.T) {
	h := newHarness(t)
	h.fetched(t)

	names := make([]string, len(h.m.rows))
	for i, r := range h.m.rows {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"Counter-Strike", "Day of Defeat", "Dota 2", "Item 4000", "Team Fortress Classic"}, names)
	assert.Contains(t, h.m.message, "Loaded 5 games for "+testutil.SteamID)
}

func TestToggleFollowsCursor(t *testing.T) {
	h := newHarness(t)
	h.fetched(t)

	h.send(t, down)
	h.send(t, space)
	assert.Equal(t, []models.AppID{30}, h.svc.SelectedIDs())
	assert.True(t, h.m.rows[1].Checked)

	h.send(t, space)
	assert.Empty(t, h.svc.SelectedIDs())
}

func TestCursorStaysInBounds(t *testing.T) {
	h := newHarness(t)
	h.fetched(t)

	for range 10 {
		h.send(t, down)
	}
	assert.Equal(t, 4, h.m.cursor)
	h.send(t, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 0, h.m.cursor)
}

func TestFilterThenSelectVisible(t *testing.T) {
	h := newHarness(t)
	h.fetched(t)

	h.send(t, space) // Counter-Strike
	h.send(t, runes("/"))
	require.True(t, h.m.filtering)
	h.send(t, runes("d"))
	h.send(t, enter)
	require.False(t, h.m.filtering)
	require.Len(t, h.m.rows, 2)

	h.send(t, runes("a"))
	assert.Equal(t, []models.AppID{10, 30, 570}, h.svc.SelectedIDs())
	assert.Contains(t, h.m.View(), "Showing 2 of 5 | Selected: 3")

	h.send(t, runes("n"))
	assert.Equal(t, []models.AppID{10}, h.svc.SelectedIDs())
}

func TestFilterModeTypesLetters(t *testing.T) {
	h := newHarness(t)
	h.fetched(t)

	h.send(t, runes("/"))
	h.send(t, runes("q"))
	assert.Equal(t, "q", h.m.query())
	assert.Empty(t, h.m.rows)
}

func TestClear(t *testing.T) {
	h := newHarness(t)
	h.fetched(t)
	h.send(t, runes("a"))
	require.Len(t, h.svc.SelectedIDs(), 5)

	h.send(t, runes("c"))
	assert.Empty(t, h.svc.SelectedIDs())
	assert.Equal(t, "Cleared 5", h.m.message)
}

func TestExportEmptySelection(t *testing.T) {
	h := newHarness(t)
	h.fetched(t)

	h.run(t, runes("e"))
	require.Error(t, h.m.err)
	assert.Equal(t, "Nothing selected to export", h.m.message)
}

func TestExportWritesFiles(t *testing.T) {
	h := newHarness(t)
	h.fetched(t)
	h.send(t, space)

	h.run(t, runes("e"))
	require.NoError(t, h.m.err)
	assert.True(t, strings.HasPrefix(h.m.message, "Exported 1 games"))
	for _, name := range []string{codec.ScriptFile, codec.CSVFile, codec.LauncherFile} {
		_, err := os.Stat(filepath.Join(h.dir, name))
		assert.NoError(t, err, name)
	}
}

func TestQuit(t *testing.T) {
	h := newHarness(t)
	_, cmd := h.m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestWindowSizeShrinksList(t *testing.T) {
	h := newHarness(t)
	h.fetched(t)

	next, _ := h.m.Update(tea.WindowSizeMsg{Width: 80, Height: 7})
	h.m = next.(Model)
	assert.Equal(t, minListHeight, h.m.height)

	for range 4 {
		h.send(t, down)
	}
	assert.Equal(t, 2, h.m.offset)
	assert.NotContains(t, h.m.View(), "Counter-Strike")
}
