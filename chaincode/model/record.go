package model

import "time"

// HashRecord is the world-state value stored under a user ID. Only the
// fingerprint of a file is kept, never its content.
type HashRecord struct {
	UserID     string     `json:"userId"`
	Filename   string     `json:"filename"`
	Hash       string     `json:"hash"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}
