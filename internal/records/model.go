package records

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	// ErrValidation marks requests missing required fields.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when creating a record that already exists.
	ErrConflict = errors.New("record already exists")
	// ErrNotFound is returned when updating or querying an absent record.
	ErrNotFound = errors.New("record not found")
)

// Upload is a received file; only its hash and name reach the ledger.
type Upload struct {
	UserID   string
	Filename string
	Content  []byte
}

// Hash returns the lowercase hex SHA-256 digest of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
