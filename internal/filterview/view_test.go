package filterview

import (
	"testing"

	"github.com/starford/idlepick/internal/models"
	"github.com/starford/idlepick/internal/selection"
)

func sampleCatalog() *models.Catalog {
	return &models.Catalog{Entries: []models.Entry{
		{ID: 1, Name: "Zeta"},
		{ID: 2, Name: "Alpha"},
		{ID: 3, Name: ""},
	}}
}

func TestRenderOrderAndChecked(t *testing.T) {
	sel := selection.New()
	sel.Add(1)
	sel.Add(3)

	rows := Render(sampleCatalog(), "", sel)
	want := []struct {
		id      models.AppID
		name    string
		checked bool
	}{
		{2, "Alpha", false},
		{3, "Item 3", true},
		{1, "Zeta", true},
	}
	if len(rows) != len(want) {
		t.Fatalf("len = %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		r := rows[i]
		if r.Entry.ID != w.id || r.Name != w.name || r.Checked != w.checked {
			t.Errorf("row %d = (%d,%q,%v), want (%d,%q,%v)", i, r.Entry.ID, r.Name, r.Checked, w.id, w.name, w.checked)
		}
	}
}

func TestRenderFiltersCaseInsensitive(t *testing.T) {
	c := &models.Catalog{Entries: []models.Entry{
		{ID: 1, Name: "Portal 2"},
		{ID: 2, Name: "PORTAL"},
		{ID: 3, Name: "Half-Life"},
	}}
	rows := Render(c, "  portal ", selection.New())
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Entry.ID != 2 || rows[1].Entry.ID != 1 {
		t.Errorf("order = %d,%d", rows[0].Entry.ID, rows[1].Entry.ID)
	}
}

func TestRenderMatchesSynthesizedName(t *testing.T) {
	rows := Render(sampleCatalog(), "item 3", selection.New())
	if len(rows) != 1 || rows[0].Entry.ID != 3 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestRenderStableForEqualNames(t *testing.T) {
	c := &models.Catalog{Entries: []models.Entry{
		{ID: 9, Name: "dup"},
		{ID: 4, Name: "DUP"},
		{ID: 7, Name: "Dup"},
	}}
	rows := Render(c, "", selection.New())
	got := []models.AppID{rows[0].Entry.ID, rows[1].Entry.ID, rows[2].Entry.ID}
	if got[0] != 9 || got[1] != 4 || got[2] != 7 {
		t.Errorf("order = %v, want fetch order [9 4 7]", got)
	}
}

func TestRenderIsSelectionNeutral(t *testing.T) {
	sel := selection.New()
	sel.Add(1)
	sel.Add(42)
	before := sel.IDs()

	for _, q := range []string{"", "zeta", "nothing matches", "ALPHA"} {
		_ = Render(sampleCatalog(), q, sel)
	}

	after := sel.IDs()
	if len(before) != len(after) {
		t.Fatalf("selection changed: %v -> %v", before, after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("selection changed: %v -> %v", before, after)
		}
	}
}

func TestRenderDoesNotMutateCatalog(t *testing.T) {
	c := sampleCatalog()
	_ = Render(c, "", selection.New())
	if c.Entries[0].ID != 1 || c.Entries[1].ID != 2 || c.Entries[2].ID != 3 {
		t.Errorf("catalog reordered: %+v", c.Entries)
	}
}

func TestRenderNilCatalog(t *testing.T) {
	if rows := Render(nil, "x", selection.New()); len(rows) != 0 {
		t.Errorf("rows = %v", rows)
	}
}

func TestNewUnknownTagFallsBack(t *testing.T) {
	v := New("not a tag!!")
	rows := v.Render(sampleCatalog(), "", selection.New())
	if len(rows) != 3 || rows[0].Name != "Alpha" {
		t.Errorf("rows = %+v", rows)
	}
}
