package picker

import "time"

// Event kinds.
const (
	EventCatalogLoaded        = "catalog.loaded"
	EventSelectionChanged     = "selection.changed"
	EventCredentialsForgotten = "credentials.forgotten"
	EventCatalogCleared       = "catalog.cleared"
	EventExportCompleted      = "export.completed"
)

// Event is a state change notification.
type Event struct {
	Kind string `json:"kind"`
	Data any    `json:"data,omitempty"`
}

// EventFunc receives events.
type EventFunc func(Event)

// CatalogInfo is the payload of EventCatalogLoaded.
type CatalogInfo struct {
	SteamID   string    `json:"steam_id"`
	Total     int       `json:"total"`
	FetchedAt time.Time `json:"fetched_at"`
	Restored  bool      `json:"restored,omitempty"`
}

// SelectionInfo is the payload of EventSelectionChanged.
type SelectionInfo struct {
	Selected int `json:"selected"`
	Changed  int `json:"changed"`
}

func (s *Session) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

func (s *Session) selectionChanged(selected, changed int) {
	if changed == 0 {
		return
	}
	s.emit(Event{Kind: EventSelectionChanged, Data: SelectionInfo{Selected: selected, Changed: changed}})
}
