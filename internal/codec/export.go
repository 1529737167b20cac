// Package codec turns a selection into the portable export artifacts and
// parses exported CSV back into app ids.
package codec

import (
	"fmt"
	"strings"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/filterview"
	"github.com/starford/idlepick/internal/models"
)

// ChunkSize is the number of games the script idles at once.
const ChunkSize = 30

// Artifact file names, as the external runner expects them.
const (
	ScriptFile   = "games.ps1"
	LauncherFile = "start.bat"
	CSVFile      = "selected_games.csv"
)

// CSVHeader is the first line of every exported CSV.
const CSVHeader = "appid,name"

// Artifacts holds the generated files' contents.
type Artifacts struct {
	Script   string
	CSV      string
	Launcher string
	Count    int
}

// Exporter renders artifacts, ordering entries the way View does.
type Exporter struct {
	View filterview.View
}

// Export renders the artifacts for the catalog entries whose id is selected.
// Selected ids missing from the catalog are dropped. It fails with
// apperr.ErrEmptySelection when nothing remains.
func (x Exporter) Export(c *models.Catalog, sel filterview.Checker) (Artifacts, error) {
	var chosen []models.Entry
	if c != nil {
		for _, e := range c.Entries {
			if sel.Contains(e.ID) {
				chosen = append(chosen, e)
			}
		}
	}
	if len(chosen) == 0 {
		return Artifacts{}, apperr.ErrEmptySelection
	}
	x.View.Sort(chosen)

	return Artifacts{
		Script:   renderScript(chosen),
		CSV:      renderCSV(chosen),
		Launcher: launcherTemplate,
		Count:    len(chosen),
	}, nil
}

// Export is Exporter{}.Export.
func Export(c *models.Catalog, sel filterview.Checker) (Artifacts, error) {
	return Exporter{}.Export(c, sel)
}

func renderCSV(entries []models.Entry) string {
	var b strings.Builder
	b.WriteString(CSVHeader)
	b.WriteByte('\n')
	for _, e := range entries {
		fmt.Fprintf(&b, "%d,%s\n", e.ID, EscapeCSV(e.DisplayName()))
	}
	return b.String()
}

// EscapeCSV quotes s when it contains a comma, a quote or a line break,
// doubling embedded quotes. Anything else is returned unchanged.
func EscapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuotePS doubles single quotes so s can sit inside a single-quoted
// PowerShell literal.
func QuotePS(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func renderScript(entries []models.Entry) string {
	chunks := chunk(entries, ChunkSize)

	var b strings.Builder
	b.WriteString(scriptHeader)
	for ci, group := range chunks {
		b.WriteString("    @(\n")
		for gi, e := range group {
			sep := ""
			if gi < len(group)-1 {
				sep = ","
			}
			fmt.Fprintf(&b, "        @{Name='%s'; ID=%d}%s\n", QuotePS(e.DisplayName()), e.ID, sep)
		}
		if ci < len(chunks)-1 {
			b.WriteString("    ),\n")
		} else {
			b.WriteString("    )\n")
		}
	}
	b.WriteString(scriptBody)
	return b.String()
}

func chunk(entries []models.Entry, size int) [][]models.Entry {
	var out [][]models.Entry
	for len(entries) > size {
		out = append(out, entries[:size:size])
		entries = entries[size:]
	}
	if len(entries) > 0 {
		out = append(out, entries)
	}
	return out
}
