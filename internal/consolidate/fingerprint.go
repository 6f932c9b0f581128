package consolidate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint returns the SHA-256 hex digest of a row's cells concatenated in
// order. Identical cell sequences always produce the same digest; the digest
// carries no ordering and cannot be inverted back to the row.
func Fingerprint(row []string) string {
	sum := sha256.Sum256([]byte(strings.Join(row, "")))
	return hex.EncodeToString(sum[:])
}
