package githubapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/Mohwit/github-app-issue-commenter/internal/model"
)

// DefaultRefreshSkew is how long before expiry a cached token is replaced.
const DefaultRefreshSkew = 60 * time.Second

// TokenSource hands out installation tokens that are valid right now.
type TokenSource interface {
	Token(ctx context.Context, installationID int64) (model.CachedToken, error)
}

// CredentialManager caches one installation token per installation.
//
// Per installation the cache is either empty, holds a token, or has a
// refresh in flight. Reads of a fresh token are lock-free (sync.Map of
// immutable values). A stale or missing token triggers a refresh through a
// singleflight group, so concurrent callers share one upstream call. A
// failed refresh leaves the installation with no cached token.
type CredentialManager struct {
	issuer TokenIssuer
	clock  clockwork.Clock
	skew   time.Duration
	logger *slog.Logger

	tokens sync.Map // int64 -> *model.CachedToken
	flight singleflight.Group
}

type CredentialManagerOption func(*CredentialManager)

func WithClock(clock clockwork.Clock) CredentialManagerOption {
	return func(m *CredentialManager) { m.clock = clock }
}

func WithRefreshSkew(skew time.Duration) CredentialManagerOption {
	return func(m *CredentialManager) {
		if skew >= 0 {
			m.skew = skew
		}
	}
}

func WithLogger(logger *slog.Logger) CredentialManagerOption {
	return func(m *CredentialManager) { m.logger = logger }
}

func NewCredentialManager(issuer TokenIssuer, opts ...CredentialManagerOption) *CredentialManager {
	m := &CredentialManager{
		issuer: issuer,
		clock:  clockwork.NewRealClock(),
		skew:   DefaultRefreshSkew,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a cached token for the installation, refreshing it first
// when it is missing or within the refresh skew of expiry. Errors wrap
// ErrCredential.
func (m *CredentialManager) Token(ctx context.Context, installationID int64) (model.CachedToken, error) {
	if tok, ok := m.cached(installationID); ok {
		return tok, nil
	}

	// The flight outlives any single caller: a caller that gives up must
	// not fail the refresh for the others waiting on it.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.flight.DoChan(strconv.FormatInt(installationID, 10), func() (any, error) {
		return m.refresh(flightCtx, installationID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return model.CachedToken{}, res.Err
		}
		return res.Val.(model.CachedToken), nil
	case <-ctx.Done():
		return model.CachedToken{}, fmt.Errorf("%w: waiting for installation %d token: %w", ErrCredential, installationID, ctx.Err())
	}
}

// Invalidate drops the cached token, e.g. after GitHub rejected it.
func (m *CredentialManager) Invalidate(installationID int64) {
	m.tokens.Delete(installationID)
}

func (m *CredentialManager) cached(installationID int64) (model.CachedToken, bool) {
	v, ok := m.tokens.Load(installationID)
	if !ok {
		return model.CachedToken{}, false
	}
	tok := v.(*model.CachedToken)
	if !tok.ValidAt(m.clock.Now(), m.skew) {
		return model.CachedToken{}, false
	}
	return *tok, true
}

func (m *CredentialManager) refresh(ctx context.Context, installationID int64) (model.CachedToken, error) {
	// Another flight may have finished between our cache miss and this one starting.
	if tok, ok := m.cached(installationID); ok {
		return tok, nil
	}

	tok, err := m.issuer.IssueToken(ctx, installationID)
	if err != nil {
		m.tokens.Delete(installationID)
		m.logger.WarnContext(ctx, "installation token refresh failed",
			"installation_id", installationID,
			"error", err,
		)
		return model.CachedToken{}, wrapCredential(err)
	}

	now := m.clock.Now()
	if tok.Token == "" || !now.Before(tok.ExpiresAt) {
		m.tokens.Delete(installationID)
		return model.CachedToken{}, fmt.Errorf("%w: installation %d: issued token already expired at %s", ErrCredential, installationID, tok.ExpiresAt.Format(time.RFC3339))
	}

	// A token inside the skew window is usable once but not worth caching.
	if tok.ValidAt(now, m.skew) {
		stored := tok
		m.tokens.Store(installationID, &stored)
	}

	m.logger.DebugContext(ctx, "installation token refreshed",
		"installation_id", installationID,
		"expires_at", tok.ExpiresAt,
	)
	return tok, nil
}

func wrapCredential(err error) error {
	if errors.Is(err, ErrCredential) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCredential, err)
}
