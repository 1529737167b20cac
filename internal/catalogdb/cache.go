package catalogdb

import "github.com/starford/idlepick/internal/models"

// Cache is what the picker session needs from the snapshot store.
// Consumers depend on this rather than *DB so tests can substitute it.
type Cache interface {
	ReplaceSnapshot(c *models.Catalog) error
	Latest() (*models.Catalog, error)
	Clear() error
}

// Ledger remembers which inbox files were already imported.
type Ledger interface {
	ImportChecksum(path string) (string, error)
	RecordImport(rec ImportRecord) error
}

var (
	_ Cache  = (*DB)(nil)
	_ Ledger = (*DB)(nil)
)
