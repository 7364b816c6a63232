package db

import (
	"crypto/sha256"
	"encoding/hex"
)

// GenerateContentHash returns the hex SHA-256 of content.
// Stored alongside snapshot rows so identical re-imports are detectable.
func GenerateContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
