// Package apperr defines the error taxonomy shared by the core and its hosts.
package apperr

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrNoCatalog = errors.New("no catalog loaded")

	// ErrValidation reports missing or malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrResolution reports that an identity could not be turned into a SteamID64.
	ErrResolution = errors.New("identity resolution failed")
	// ErrTransport reports an HTTP-layer failure while talking to the Steam Web API.
	ErrTransport = errors.New("transport failure")

	ErrEmptySelection         = errors.New("nothing selected")
	ErrImportSourceUnreadable = errors.New("import source unreadable")

	ErrVaultWrite = errors.New("vault write failed")
	// ErrVaultCorrupt is internal: hosts only ever see an absent credential.
	ErrVaultCorrupt = errors.New("vault blob corrupt")
)
