package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Mohwit/github-app-issue-commenter/common/logger"
	"github.com/Mohwit/github-app-issue-commenter/internal/githubapp"
	"github.com/Mohwit/github-app-issue-commenter/internal/model"
	"github.com/Mohwit/github-app-issue-commenter/internal/store"
)

const DefaultBodyPreviewLength = 200

type DispatchStatus string

const (
	StatusCommented DispatchStatus = "commented"
	StatusSkipped   DispatchStatus = "skipped"
	StatusFailed    DispatchStatus = "failed"
)

const ReasonMissingData = "missing required data"

type DispatchOutcome struct {
	Status    DispatchStatus
	Reason    string             // set when skipped
	Record    *model.IssueRecord // set when commented
	CommentID int64
}

type CommentCreator interface {
	CreateIssueComment(ctx context.Context, token, repository string, number int, body string) (int64, error)
}

// tokenInvalidator is implemented by token sources that cache.
type tokenInvalidator interface {
	Invalidate(installationID int64)
}

type Dispatcher interface {
	// Dispatch comments on newly opened issues and records them. Every
	// other action is skipped. A failed dispatch never touches the store.
	Dispatch(ctx context.Context, ev *model.IssueEvent) (DispatchOutcome, error)
}

type dispatcher struct {
	tokens        githubapp.TokenSource
	comments      CommentCreator
	issues        store.IssueStore
	renderer      GuidelineRenderer
	previewLength int
	logger        *slog.Logger
}

func NewDispatcher(tokens githubapp.TokenSource, comments CommentCreator, issues store.IssueStore, renderer GuidelineRenderer, previewLength int, logger *slog.Logger) Dispatcher {
	if renderer == nil {
		renderer = DefaultGuidelineRenderer()
	}
	if previewLength <= 0 {
		previewLength = DefaultBodyPreviewLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &dispatcher{
		tokens:        tokens,
		comments:      comments,
		issues:        issues,
		renderer:      renderer,
		previewLength: previewLength,
		logger:        logger,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, ev *model.IssueEvent) (DispatchOutcome, error) {
	if ev == nil {
		return skipped(ReasonMissingData), nil
	}
	if ev.Action != model.IssueActionOpened {
		return skipped(fmt.Sprintf("action %q ignored", ev.Action)), nil
	}
	if !ev.HasRequiredData() {
		d.logger.InfoContext(ctx, "skipping opened issue without required data",
			"has_issue", ev.Issue != nil,
			"repository", ev.Repository,
			"installation_id", ev.InstallationID)
		return skipped(ReasonMissingData), nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Repository:     logger.Ptr(ev.Repository),
		IssueNumber:    logger.Ptr(ev.Issue.Number),
		InstallationID: logger.Ptr(ev.InstallationID),
		Component:      "issue-commenter.dispatcher",
	})

	token, err := d.tokens.Token(ctx, ev.InstallationID)
	if err != nil {
		if !errors.Is(err, githubapp.ErrCredential) {
			err = fmt.Errorf("%w: %w", githubapp.ErrCredential, err)
		}
		d.logger.ErrorContext(ctx, "failed to get installation token", "error", err)
		return failed(), err
	}

	body, err := d.renderer.Render(GuidelineData{
		Number:     ev.Issue.Number,
		Title:      ev.Issue.Title,
		User:       ev.Issue.User,
		Repository: ev.Repository,
		URL:        ev.Issue.URL,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to render guideline comment", "error", err)
		return failed(), err
	}

	commentID, err := d.comments.CreateIssueComment(ctx, token.Token, ev.Repository, ev.Issue.Number, body)
	if err != nil {
		if !errors.Is(err, githubapp.ErrUpstreamAPI) {
			err = fmt.Errorf("%w: %w", githubapp.ErrUpstreamAPI, err)
		}
		// A revoked token would otherwise be served from cache until expiry.
		if githubapp.StatusCode(err) == http.StatusUnauthorized {
			if inv, ok := d.tokens.(tokenInvalidator); ok {
				inv.Invalidate(ev.InstallationID)
			}
		}
		d.logger.ErrorContext(ctx, "failed to post guideline comment", "error", err)
		return failed(), err
	}

	record := d.issues.Append(d.newRecord(ev))

	d.logger.InfoContext(ctx, "posted guideline comment",
		"comment_id", commentID,
		"record_id", record.ID,
		"stored_issues", d.issues.Len())

	return DispatchOutcome{
		Status:    StatusCommented,
		Record:    &record,
		CommentID: commentID,
	}, nil
}

func (d *dispatcher) newRecord(ev *model.IssueEvent) model.IssueRecord {
	return model.IssueRecord{
		Number:        ev.Issue.Number,
		Title:         ev.Issue.Title,
		Body:          Preview(ev.Issue.Body, d.previewLength),
		Repository:    ev.Repository,
		User:          ev.Issue.User,
		UserAvatarURL: ev.Issue.AvatarURL,
		URL:           ev.Issue.URL,
		CreatedAt:     ev.Issue.CreatedAt,
		Labels:        ev.Issue.Labels,
	}
}

// Preview truncates body to n runes, marking the cut with "...".
func Preview(body string, n int) string {
	runes := []rune(body)
	if len(runes) <= n {
		return body
	}
	return string(runes[:n]) + "..."
}

func skipped(reason string) DispatchOutcome {
	return DispatchOutcome{Status: StatusSkipped, Reason: reason}
}

func failed() DispatchOutcome {
	return DispatchOutcome{Status: StatusFailed}
}
