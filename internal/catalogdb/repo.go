package catalogdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/models"
)

// ImportRecord is one row of the inbox ledger.
type ImportRecord struct {
	Path       string
	Checksum   string
	Added      int
	Skipped    int
	ImportedAt time.Time
}

// ReplaceSnapshot stores c as the only snapshot, in one transaction.
func (db *DB) ReplaceSnapshot(c *models.Catalog) error {
	if c == nil {
		return fmt.Errorf("catalogdb: nil catalog")
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalogdb: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("catalogdb: clear entries: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO snapshot (id, steam_id, checksum, entry_count, fetched_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			steam_id    = excluded.steam_id,
			checksum    = excluded.checksum,
			entry_count = excluded.entry_count,
			fetched_at  = excluded.fetched_at
	`, c.SteamID, c.Checksum, len(c.Entries), c.FetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("catalogdb: upsert snapshot: %w", err)
	}

	if len(c.Entries) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO entries (position, appid, name) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("catalogdb: prepare entry insert: %w", err)
		}
		defer stmt.Close()
		for i, e := range c.Entries {
			if _, err := stmt.Exec(i, int64(e.ID), e.Name); err != nil {
				return fmt.Errorf("catalogdb: insert entry: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalogdb: commit: %w", err)
	}
	return nil
}

// Latest returns the stored snapshot, or apperr.ErrNoCatalog.
func (db *DB) Latest() (*models.Catalog, error) {
	var c models.Catalog
	var count int
	err := db.conn.QueryRow(
		`SELECT steam_id, checksum, entry_count, fetched_at FROM snapshot WHERE id = 1`,
	).Scan(&c.SteamID, &c.Checksum, &count, &c.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNoCatalog
	}
	if err != nil {
		return nil, fmt.Errorf("catalogdb: load snapshot: %w", err)
	}

	rows, err := db.conn.Query(`SELECT appid, name FROM entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("catalogdb: load entries: %w", err)
	}
	defer rows.Close()

	c.Entries = make([]models.Entry, 0, count)
	for rows.Next() {
		var id int64
		var e models.Entry
		if err := rows.Scan(&id, &e.Name); err != nil {
			return nil, fmt.Errorf("catalogdb: scan entry: %w", err)
		}
		e.ID = models.AppID(id)
		c.Entries = append(c.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalogdb: load entries: %w", err)
	}
	if len(c.Entries) != count {
		return nil, fmt.Errorf("catalogdb: snapshot has %d entries, expected %d", len(c.Entries), count)
	}
	return &c, nil
}

// Clear drops the stored snapshot.
func (db *DB) Clear() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalogdb: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("catalogdb: clear entries: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM snapshot`); err != nil {
		return fmt.Errorf("catalogdb: clear snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalogdb: commit: %w", err)
	}
	return nil
}

// ImportChecksum returns the checksum last recorded for an inbox file, or
// "" if it was never imported.
func (db *DB) ImportChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM imports WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("catalogdb: import checksum: %w", err)
	}
	return cs, nil
}

// RecordImport upserts an inbox ledger row.
func (db *DB) RecordImport(rec ImportRecord) error {
	if rec.ImportedAt.IsZero() {
		rec.ImportedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO imports (path, checksum, added, skipped, imported_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum    = excluded.checksum,
			added       = excluded.added,
			skipped     = excluded.skipped,
			imported_at = excluded.imported_at
	`, rec.Path, rec.Checksum, rec.Added, rec.Skipped, rec.ImportedAt.UTC())
	if err != nil {
		return fmt.Errorf("catalogdb: record import: %w", err)
	}
	return nil
}
