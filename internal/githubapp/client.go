package githubapp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mohwit/github-app-issue-commenter/common/logger"
	"github.com/Mohwit/github-app-issue-commenter/internal/model"
)

const DefaultBaseURL = "https://api.github.com/"

// Client is a thin wrapper over go-github that authenticates each call with
// the credential passed in, so one Client serves every installation.
type Client struct {
	base *github.Client
}

// NewClient builds a client for baseURL (GitHub Enterprise or a test
// server). A nil httpClient gets a 30s timeout client.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing github api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("github api url must be http(s), got %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	base := github.NewClient(httpClient)
	base.BaseURL = u
	base.UserAgent = "issue-commenter-bot"
	return &Client{base: base}, nil
}

// CreateInstallationToken exchanges an App JWT for an installation token.
func (c *Client) CreateInstallationToken(ctx context.Context, appJWT string, installationID int64) (model.CachedToken, error) {
	sc := logger.StartSpan(ctx, "github.create_installation_token",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int64("github.installation_id", installationID)),
	)
	defer sc.End()

	tok, resp, err := c.base.WithAuthToken(appJWT).Apps.CreateInstallationToken(sc.Context(), installationID, nil)
	if err != nil {
		err = upstreamError("create installation token", resp, err)
		sc.RecordError(err)
		return model.CachedToken{}, err
	}

	if tok.GetToken() == "" || tok.ExpiresAt == nil {
		err := fmt.Errorf("%w: create installation token: response missing token or expires_at", ErrUpstreamAPI)
		sc.RecordError(err)
		return model.CachedToken{}, err
	}

	return model.CachedToken{
		Token:     tok.GetToken(),
		ExpiresAt: tok.GetExpiresAt().Time,
	}, nil
}

// CreateIssueComment posts body on issue number of repository ("owner/name")
// using an installation token. Returns the new comment's ID.
func (c *Client) CreateIssueComment(ctx context.Context, token, repository string, number int, body string) (int64, error) {
	owner, repo, ok := SplitRepository(repository)
	if !ok {
		return 0, fmt.Errorf("%w: invalid repository %q", ErrUpstreamAPI, repository)
	}

	sc := logger.StartSpan(ctx, "github.create_issue_comment",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("github.repository", repository),
			attribute.Int("github.issue_number", number),
		),
	)
	defer sc.End()

	comment, resp, err := c.base.WithAuthToken(token).Issues.CreateComment(sc.Context(), owner, repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		err = upstreamError(fmt.Sprintf("create comment on %s#%d", repository, number), resp, err)
		sc.RecordError(err)
		return 0, err
	}

	return comment.GetID(), nil
}

// SplitRepository splits "owner/name". Both halves must be non-empty.
func SplitRepository(fullName string) (owner, repo string, ok bool) {
	owner, repo, ok = strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}
