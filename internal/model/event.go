package model

import "time"

type IssueAction string

const (
	IssueActionOpened   IssueAction = "opened"
	IssueActionEdited   IssueAction = "edited"
	IssueActionClosed   IssueAction = "closed"
	IssueActionReopened IssueAction = "reopened"
	IssueActionLabeled  IssueAction = "labeled"
	IssueActionAssigned IssueAction = "assigned"
	IssueActionDeleted  IssueAction = "deleted"
)

// IssueEvent is a verified, parsed "issues" webhook delivery. Issue is nil,
// Repository empty, or InstallationID zero when the payload omitted them.
type IssueEvent struct {
	DeliveryID     string
	Action         IssueAction
	Issue          *Issue
	Repository     string // owner/name
	InstallationID int64
}

type Issue struct {
	Number    int
	Title     string
	Body      string
	URL       string
	User      string
	AvatarURL string
	Labels    []string
	CreatedAt time.Time
}

// HasRequiredData reports whether the event carries everything needed to
// comment on the issue.
func (e *IssueEvent) HasRequiredData() bool {
	return e.Issue != nil && e.Issue.Number > 0 && e.Repository != "" && e.InstallationID != 0
}
