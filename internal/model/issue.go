package model

import (
	"slices"
	"time"
)

// IssueRecord is the dashboard's normalized snapshot of an opened issue.
// Records are immutable once appended to the store.
type IssueRecord struct {
	ID            int64     `json:"id"`
	Number        int       `json:"number"`
	Title         string    `json:"title"`
	Body          string    `json:"body"` // preview, possibly truncated
	Repository    string    `json:"repository"`
	User          string    `json:"user"`
	UserAvatarURL string    `json:"user_avatar_url"`
	URL           string    `json:"url"`
	CreatedAt     time.Time `json:"created_at"`  // from GitHub
	RecordedAt    time.Time `json:"recorded_at"` // assigned by the store
	Labels        []string  `json:"labels"`
}

// Clone returns a copy that shares no mutable state with r.
func (r IssueRecord) Clone() IssueRecord {
	r.Labels = slices.Clone(r.Labels)
	if r.Labels == nil {
		r.Labels = []string{}
	}
	return r
}

// HasLabel reports whether the record carries the named label.
func (r IssueRecord) HasLabel(name string) bool {
	return slices.Contains(r.Labels, name)
}
