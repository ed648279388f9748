package models

import "time"

// SessionArtifact is a read-only projection of one assistant session
// directory on disk, used for listing and retention cleanup.
type SessionArtifact struct {
	ID         string
	CreatedAt  time.Time
	ModifiedAt time.Time
	SizeBytes  int64
	FileCount  int
}
