package mapper

import (
	"context"
	"errors"

	"github.com/Mohwit/github-app-issue-commenter/internal/model"
)

// GitHub event names as sent in X-GitHub-Event.
const (
	EventIssues       = "issues"
	EventIssueComment = "issue_comment"
	EventPullRequest  = "pull_request"
	EventPing         = "ping"
)

var (
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrUnsupportedEvent = errors.New("unsupported webhook event")
)

type EventMapper interface {
	// EventType resolves the event name from the header, falling back to
	// the payload shape when the header is missing.
	EventType(header string, body []byte) string
	Map(ctx context.Context, eventType string, body []byte) (*model.IssueEvent, error)
}
