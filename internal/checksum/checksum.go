// Package checksum computes content digests for artifacts and catalogs.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/starford/idlepick/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Entries digests a catalog's entries in fetch order. Two fetches that
// returned the same games in the same order share a digest.
func Entries(entries []models.Entry) string {
	h := sha256.New()
	var buf []byte
	for _, e := range entries {
		buf = strconv.AppendUint(buf[:0], uint64(e.ID), 10)
		buf = append(buf, '\t')
		buf = append(buf, e.Name...)
		buf = append(buf, '\n')
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
