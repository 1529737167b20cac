// Package selection holds the set of chosen app ids.
//
// Membership is the single source of truth for "is chosen" and is independent
// of whatever part of the catalog is currently displayed. Only explicit
// Add/Remove/Clear/ImportMerge calls change it. Store does no locking; hosts
// serialize access.
package selection

import (
	"slices"

	"github.com/starford/idlepick/internal/models"
)

// Store is a set of app ids.
type Store struct {
	ids map[models.AppID]struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{ids: make(map[models.AppID]struct{})}
}

// Add marks id as selected.
func (s *Store) Add(id models.AppID) {
	s.ids[id] = struct{}{}
}

// Remove unmarks id. Removing an absent id is a no-op.
func (s *Store) Remove(id models.AppID) {
	delete(s.ids, id)
}

// Contains reports whether id is selected.
func (s *Store) Contains(id models.AppID) bool {
	_, ok := s.ids[id]
	return ok
}

// Clear drops every selected id.
func (s *Store) Clear() {
	clear(s.ids)
}

// Count returns the number of selected ids.
func (s *Store) Count() int {
	return len(s.ids)
}

// ImportMerge adds every id not already present and returns how many were new.
// Duplicates, within ids or against the existing set, are absorbed.
func (s *Store) ImportMerge(ids map[models.AppID]struct{}) int {
	added := 0
	for id := range ids {
		if _, ok := s.ids[id]; ok {
			continue
		}
		s.ids[id] = struct{}{}
		added++
	}
	return added
}

// IDs returns the selected ids in ascending order.
func (s *Store) IDs() []models.AppID {
	out := make([]models.AppID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
