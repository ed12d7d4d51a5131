package store

import (
	"strings"

	"github.com/Mohwit/github-app-issue-commenter/internal/model"
)

// IssueFilter narrows a snapshot for the dashboard. Zero values match
// everything.
type IssueFilter struct {
	Repository string // owner/name, case-insensitive
	Label      string
	User       string // login, case-insensitive
	Limit      int    // <= 0 means no limit
}

func (f IssueFilter) matches(r model.IssueRecord) bool {
	if f.Repository != "" && !strings.EqualFold(r.Repository, f.Repository) {
		return false
	}
	if f.User != "" && !strings.EqualFold(r.User, f.User) {
		return false
	}
	if f.Label != "" && !r.HasLabel(f.Label) {
		return false
	}
	return true
}

// Query returns the records in s matching f, most recent first, and the
// number of matches before Limit was applied.
func Query(s IssueStore, f IssueFilter) ([]model.IssueRecord, int) {
	snapshot := s.Snapshot()

	out := snapshot[:0]
	for _, r := range snapshot {
		if f.matches(r) {
			out = append(out, r)
		}
	}

	total := len(out)
	if f.Limit > 0 && total > f.Limit {
		out = out[:f.Limit]
	}
	return out, total
}
