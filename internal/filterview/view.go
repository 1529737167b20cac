// Package filterview derives the displayed, ordered part of a catalog from a
// free-text query. It never mutates the catalog or the selection.
package filterview

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/idlepick/internal/models"
)

// Checker reports selection membership.
type Checker interface {
	Contains(id models.AppID) bool
}

// Row is one rendered line.
type Row struct {
	Entry   models.Entry `json:"entry"`
	Name    string       `json:"name"`
	Checked bool         `json:"checked"`
}

// View renders catalogs using the collation rules of one language.
// The zero value collates like English.
type View struct {
	Tag language.Tag
}

// New returns a View for the given BCP 47 tag. Unknown tags fall back to English.
func New(tag string) View {
	t, err := language.Parse(tag)
	if err != nil {
		t = language.English
	}
	return View{Tag: t}
}

func (v View) tag() language.Tag {
	if v.Tag == language.Und {
		return language.English
	}
	return v.Tag
}

// Render filters the catalog by query and reports each row's checked state.
func (v View) Render(c *models.Catalog, query string, sel Checker) []Row {
	visible := v.Filter(c, query)
	rows := make([]Row, len(visible))
	for i, e := range visible {
		rows[i] = Row{Entry: e, Name: e.DisplayName(), Checked: sel.Contains(e.ID)}
	}
	return rows
}

// Filter returns the entries matching query, in display order.
func (v View) Filter(c *models.Catalog, query string) []models.Entry {
	if c == nil {
		return nil
	}
	q := strings.TrimSpace(query)
	var working []models.Entry
	if q == "" {
		working = slices.Clone(c.Entries)
	} else {
		fold := cases.Fold()
		needle := fold.String(q)
		for _, e := range c.Entries {
			if strings.Contains(fold.String(e.DisplayName()), needle) {
				working = append(working, e)
			}
		}
	}
	v.Sort(working)
	return working
}

// Sort orders entries in place by display name, case-insensitively and
// locale-aware. Equal names keep their relative order.
func (v View) Sort(entries []models.Entry) {
	col := collate.New(v.tag(), collate.IgnoreCase)
	slices.SortStableFunc(entries, func(a, b models.Entry) int {
		return col.CompareString(a.DisplayName(), b.DisplayName())
	})
}

// Render is View{}.Render.
func Render(c *models.Catalog, query string, sel Checker) []Row {
	return View{}.Render(c, query, sel)
}
