// Package models defines the domain types for idlepick.
package models

import (
	"strconv"
	"time"
)

// AppID is a Steam application id.
type AppID uint32

// String returns the decimal form of the id.
func (id AppID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Entry is one owned game as returned by the catalog fetch.
type Entry struct {
	ID   AppID  `json:"appid"`
	Name string `json:"name,omitempty"`
}

// DisplayName returns Name, or "Item {id}" when the service sent no name.
func (e Entry) DisplayName() string {
	if e.Name == "" {
		return "Item " + e.ID.String()
	}
	return e.Name
}

// Catalog is a fetched snapshot of owned games. A new fetch replaces the whole
// value; entries keep the order the service returned them in.
type Catalog struct {
	SteamID   string    `json:"steamid"`
	Entries   []Entry   `json:"entries"`
	FetchedAt time.Time `json:"fetched_at"`
	Checksum  string    `json:"checksum"`
}

// Len returns the number of entries, treating a nil catalog as empty.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// Lookup returns the entry with the given id.
func (c *Catalog) Lookup(id AppID) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	for _, e := range c.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Credential is the plaintext record kept in the credential vault.
type Credential struct {
	APIKey   string `json:"ApiKey"`
	Identity string `json:"Identity"`
}

// Empty reports whether neither field is set.
func (c Credential) Empty() bool {
	return c.APIKey == "" && c.Identity == ""
}
