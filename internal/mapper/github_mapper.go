package mapper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/go-github/v66/github"

	"github.com/Mohwit/github-app-issue-commenter/internal/model"
)

type GitHubEventMapper struct{}

func NewGitHubEventMapper() *GitHubEventMapper {
	return &GitHubEventMapper{}
}

// payloadShape holds just enough of a delivery to tell event kinds apart.
type payloadShape struct {
	Zen         *string         `json:"zen"`
	Issue       json.RawMessage `json:"issue"`
	Comment     json.RawMessage `json:"comment"`
	PullRequest json.RawMessage `json:"pull_request"`
}

func (m *GitHubEventMapper) EventType(header string, body []byte) string {
	if header != "" {
		return header
	}

	var shape payloadShape
	if err := json.Unmarshal(body, &shape); err != nil {
		return ""
	}

	switch {
	case len(shape.Comment) > 0 && len(shape.Issue) > 0:
		return EventIssueComment
	case len(shape.PullRequest) > 0:
		return EventPullRequest
	case len(shape.Issue) > 0:
		return EventIssues
	case shape.Zen != nil:
		return EventPing
	}
	return ""
}

func (m *GitHubEventMapper) Map(ctx context.Context, eventType string, body []byte) (*model.IssueEvent, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrInvalidPayload)
	}

	eventType = m.EventType(eventType, body)
	if eventType != EventIssues {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, eventType)
	}

	parsed, err := github.ParseWebHook(eventType, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	ev, ok := parsed.(*github.IssuesEvent)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected event type %T", ErrInvalidPayload, parsed)
	}
	if ev.GetAction() == "" {
		return nil, fmt.Errorf("%w: action is required", ErrInvalidPayload)
	}

	out := &model.IssueEvent{
		Action:         model.IssueAction(ev.GetAction()),
		Repository:     ev.GetRepo().GetFullName(),
		InstallationID: ev.GetInstallation().GetID(),
	}
	if issue := ev.GetIssue(); issue != nil {
		out.Issue = mapIssue(issue)
	}
	return out, nil
}

func mapIssue(issue *github.Issue) *model.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		if name := l.GetName(); name != "" {
			labels = append(labels, name)
		}
	}

	return &model.Issue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		URL:       issue.GetHTMLURL(),
		User:      issue.GetUser().GetLogin(),
		AvatarURL: issue.GetUser().GetAvatarURL(),
		Labels:    labels,
		CreatedAt: issue.GetCreatedAt().Time,
	}
}
