// Package tui is the interactive terminal picker.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/filterview"
	"github.com/starford/idlepick/internal/models"
	"github.com/starford/idlepick/internal/picker"
	"github.com/starford/idlepick/internal/steam"
	"github.com/starford/idlepick/internal/storage"
)

// Picker is the part of the session the terminal picker drives.
type Picker interface {
	Render(query string) []filterview.Row
	Summary(query string) picker.Summary
	Toggle(id models.AppID) (bool, error)
	SelectVisible(query string) int
	DeselectVisible(query string) int
	ClearAll() int
	Export(ctx context.Context, out storage.Provider) (picker.ExportResult, error)
	Fetch(ctx context.Context, req picker.FetchRequest) (picker.FetchResult, error)
	Remembered(req picker.FetchRequest) (picker.FetchRequest, error)
}

type (
	exportDoneMsg struct {
		res picker.ExportResult
		err error
	}
	fetchDoneMsg struct {
		res picker.FetchResult
		err error
	}
)

const minListHeight = 3

// Model is the root picker model.
type Model struct {
	svc      Picker
	out      storage.Provider
	coverage steam.Coverage

	filter    textinput.Model
	filtering bool

	rows   []filterview.Row
	cursor int
	offset int
	height int
	width  int

	busy    bool
	message string
	err     error
}

// New creates the picker over svc. Exports are written to out and re-fetches
// use coverage with the remembered credentials.
func New(svc Picker, out storage.Provider, coverage steam.Coverage) Model {
	ti := textinput.New()
	ti.Placeholder = "filter by name"
	ti.Prompt = "/ "
	ti.CharLimit = 128

	m := Model{
		svc:      svc,
		out:      out,
		coverage: coverage,
		filter:   ti,
		height:   20,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) query() string {
	return m.filter.Value()
}

// refresh re-renders the rows and keeps the cursor on screen.
func (m *Model) refresh() {
	m.rows = m.svc.Render(m.query())
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
	m.scroll()
}

func (m *Model) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *Model) move(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.scroll()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		// title, filter, blank, status, help
		m.height = max(msg.Height-5, minListHeight)
		m.scroll()
		return m, nil

	case exportDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.err = nil
		m.message = fmt.Sprintf("Exported %d games (%s)", msg.res.Count, strings.Join(msg.res.Files, ", "))
		return m, nil

	case fetchDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.err = nil
		m.message = fmt.Sprintf("Loaded %d games for %s", msg.res.Total, msg.res.SteamID)
		if msg.res.VaultWarning != "" {
			m.message += " (" + msg.res.VaultWarning + ")"
		}
		m.cursor, m.offset = 0, 0
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if key.Matches(msg, keys.Done) {
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor, m.offset = 0, 0
	m.refresh()
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		m.move(-1)
	case key.Matches(msg, keys.Down):
		m.move(1)
	case key.Matches(msg, keys.PageUp):
		m.move(-m.height)
	case key.Matches(msg, keys.PageDown):
		m.move(m.height)
	case key.Matches(msg, keys.Filter):
		m.filtering = true
		cmd := m.filter.Focus()
		return m, cmd
	case key.Matches(msg, keys.Toggle):
		if len(m.rows) == 0 {
			return m, nil
		}
		if _, err := m.svc.Toggle(m.rows[m.cursor].Entry.ID); err != nil {
			m.setError(err)
		}
		m.refresh()
	case key.Matches(msg, keys.SelectAll):
		n := m.svc.SelectVisible(m.query())
		m.note(fmt.Sprintf("Selected %d", n))
	case key.Matches(msg, keys.DeselectAll):
		n := m.svc.DeselectVisible(m.query())
		m.note(fmt.Sprintf("Deselected %d", n))
	case key.Matches(msg, keys.Clear):
		n := m.svc.ClearAll()
		m.note(fmt.Sprintf("Cleared %d", n))
	case key.Matches(msg, keys.Export):
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.message = "Exporting..."
		return m, m.exportCmd()
	case key.Matches(msg, keys.Refresh):
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.message = "Fetching catalog..."
		return m, m.fetchCmd()
	}
	return m, nil
}

func (m *Model) note(s string) {
	m.err = nil
	m.message = s
	m.refresh()
}

func (m *Model) setError(err error) {
	m.err = err
	switch {
	case errors.Is(err, apperr.ErrEmptySelection):
		m.message = "Nothing selected to export"
	case errors.Is(err, apperr.ErrNoCatalog):
		m.message = "No catalog loaded; press r to fetch"
	case errors.Is(err, apperr.ErrValidation):
		m.message = "No remembered credentials; run `idlepick login` first"
	default:
		m.message = err.Error()
	}
}

func (m Model) exportCmd() tea.Cmd {
	svc, out := m.svc, m.out
	return func() tea.Msg {
		res, err := svc.Export(context.Background(), out)
		return exportDoneMsg{res: res, err: err}
	}
}

func (m Model) fetchCmd() tea.Cmd {
	svc, coverage := m.svc, m.coverage
	return func() tea.Msg {
		req, err := svc.Remembered(picker.FetchRequest{Coverage: coverage})
		if err != nil {
			return fetchDoneMsg{err: err}
		}
		res, err := svc.Fetch(context.Background(), req)
		return fetchDoneMsg{res: res, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("idlepick"))
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n")

	end := min(m.offset+m.height, len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(statusStyle.Render("  (no games)"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.svc.Summary(m.query()).String()))
	if m.message != "" {
		style := statusStyle
		if m.err != nil {
			style = errorStyle
		}
		b.WriteString("  ")
		b.WriteString(style.Render(m.message))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(helpLine(keys.help())))
	return b.String()
}

func (m Model) renderRow(i int) string {
	row := m.rows[i]
	box := "[ ]"
	if row.Checked {
		box = checkedStyle.Render("[x]")
	}
	line := fmt.Sprintf("%s %s %s", box, row.Name, idStyle.Render(row.Entry.ID.String()))
	if i == m.cursor {
		return cursorStyle.Render(">") + " " + line
	}
	return "  " + line
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " | ")
}
