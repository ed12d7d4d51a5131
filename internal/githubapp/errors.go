package githubapp

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
)

var (
	// ErrCredential means no installation token could be obtained.
	ErrCredential = errors.New("github app credential error")
	// ErrUpstreamAPI means a GitHub REST call failed or returned non-2xx.
	ErrUpstreamAPI = errors.New("github api error")
)

// upstreamError wraps err in ErrUpstreamAPI, keeping the HTTP status when
// GitHub answered at all.
func upstreamError(op string, resp *github.Response, err error) error {
	if resp != nil && resp.Response != nil {
		return fmt.Errorf("%w: %s: HTTP %d: %w", ErrUpstreamAPI, op, resp.StatusCode, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstreamAPI, op, err)
}

// StatusCode extracts the HTTP status from a go-github error, or 0.
func StatusCode(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return http.StatusForbidden
	}
	return 0
}
