package store

import "github.com/Mohwit/github-app-issue-commenter/internal/model"

// DefaultMaxIssues is the capacity used when none is configured.
const DefaultMaxIssues = 100

// IssueStore holds the most recent issue records. Append-and-evict only:
// records are never updated or deleted individually.
type IssueStore interface {
	// Append stores record as the most recent entry, evicting the oldest
	// when full, and returns the stored copy with ID and RecordedAt set.
	Append(record model.IssueRecord) model.IssueRecord
	// Snapshot returns every held record, most recent first. The result is
	// owned by the caller.
	Snapshot() []model.IssueRecord
	Len() int
	Capacity() int
}
