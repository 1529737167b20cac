package picker

import (
	"fmt"
	"time"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/filterview"
	"github.com/starford/idlepick/internal/models"
)

// Summary is the status line shown by hosts.
type Summary struct {
	SteamID   string    `json:"steam_id,omitempty"`
	Total     int       `json:"total"`
	Visible   int       `json:"visible"`
	Selected  int       `json:"selected"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
}

func (s Summary) String() string {
	if s.Total == 0 && s.SteamID == "" {
		return fmt.Sprintf("No catalog loaded | Selected: %d", s.Selected)
	}
	return fmt.Sprintf("Showing %d of %d | Selected: %d", s.Visible, s.Total, s.Selected)
}

// Render returns the visible rows for query with their checked state.
func (s *Session) Render(query string) []filterview.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Render(s.catalog, query, s.sel)
}

// Summary counts the catalog, the rows visible under query and the selection.
func (s *Session) Summary(query string) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := Summary{
		Total:    s.catalog.Len(),
		Visible:  len(s.view.Filter(s.catalog, query)),
		Selected: s.sel.Count(),
	}
	if s.catalog != nil {
		sum.SteamID = s.catalog.SteamID
		sum.FetchedAt = s.catalog.FetchedAt
	}
	return sum
}

// SelectedIDs returns the selection in ascending order.
func (s *Session) SelectedIDs() []models.AppID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.IDs()
}

// Check selects an app id from the current catalog.
func (s *Session) Check(id models.AppID) error {
	return s.set(id, true)
}

// Uncheck deselects an app id. Ids outside the catalog are accepted so that
// imported leftovers can be dropped.
func (s *Session) Uncheck(id models.AppID) error {
	return s.set(id, false)
}

// Toggle flips an id and returns its new state.
func (s *Session) Toggle(id models.AppID) (bool, error) {
	s.mu.Lock()
	on := !s.sel.Contains(id)
	_, err := s.applyLocked(id, on)
	n := s.sel.Count()
	s.mu.Unlock()
	if err != nil {
		return !on, err
	}
	s.selectionChanged(n, 1)
	return on, nil
}

func (s *Session) set(id models.AppID, on bool) error {
	s.mu.Lock()
	changed, err := s.applyLocked(id, on)
	n := s.sel.Count()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if changed {
		s.selectionChanged(n, 1)
	}
	return nil
}

// applyLocked requires s.mu. Only ids present in the catalog can be added.
func (s *Session) applyLocked(id models.AppID, on bool) (bool, error) {
	if on {
		if s.catalog == nil {
			return false, apperr.ErrNoCatalog
		}
		if _, ok := s.catalog.Lookup(id); !ok {
			return false, fmt.Errorf("%w: app %s is not in the catalog", apperr.ErrNotFound, id)
		}
	}
	if s.sel.Contains(id) == on {
		return false, nil
	}
	if on {
		s.sel.Add(id)
	} else {
		s.sel.Remove(id)
	}
	return true, nil
}

// SelectVisible selects every row visible under query and returns how many
// were newly selected.
func (s *Session) SelectVisible(query string) int {
	return s.setVisible(query, true)
}

// DeselectVisible deselects every row visible under query. Hidden selected
// rows are untouched.
func (s *Session) DeselectVisible(query string) int {
	return s.setVisible(query, false)
}

func (s *Session) setVisible(query string, on bool) int {
	s.mu.Lock()
	changed := 0
	for _, e := range s.view.Filter(s.catalog, query) {
		if s.sel.Contains(e.ID) == on {
			continue
		}
		if on {
			s.sel.Add(e.ID)
		} else {
			s.sel.Remove(e.ID)
		}
		changed++
	}
	n := s.sel.Count()
	s.mu.Unlock()

	s.selectionChanged(n, changed)
	return changed
}

// ClearAll empties the selection and returns how many ids were dropped.
func (s *Session) ClearAll() int {
	s.mu.Lock()
	n := s.sel.Count()
	s.sel.Clear()
	s.mu.Unlock()

	s.selectionChanged(0, n)
	return n
}
