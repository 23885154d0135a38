package database

import (
	"time"
)

// ArchivedPost is a normalized post retained for observability. The archive
// is best-effort: a failed write never fails the request that produced it.
type ArchivedPost struct {
	ID           string
	PostID       string
	AuthorHandle string
	Text         string
	CreatedAt    *time.Time
	URL          string
	MediaCount   int
	Source       string // operation that fetched it: search | timeline
	ArchivedAt   time.Time
}

// BootstrapAttempt records one session bootstrap outcome.
type BootstrapAttempt struct {
	ID          string
	Mode        string
	Succeeded   bool
	Cause       string
	Message     string
	AttemptedAt time.Time
}

// ArchiveStats backs the /stats endpoint.
type ArchiveStats struct {
	Posts             int
	PostsWithMedia    int
	BootstrapAttempts int
	BootstrapFailures int
}
