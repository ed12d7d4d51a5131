package githubapp_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Mohwit/github-app-issue-commenter/internal/githubapp"
	"github.com/Mohwit/github-app-issue-commenter/internal/model"
)

type fakeIssuer struct {
	calls   atomic.Int32
	issueFn func(ctx context.Context, installationID int64) (model.CachedToken, error)
}

func (f *fakeIssuer) IssueToken(ctx context.Context, installationID int64) (model.CachedToken, error) {
	f.calls.Add(1)
	return f.issueFn(ctx, installationID)
}

var _ = Describe("CredentialManager", func() {
	var (
		ctx     context.Context
		clock   *clockwork.FakeClock
		issuer  *fakeIssuer
		manager *githubapp.CredentialManager
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		issuer = &fakeIssuer{
			issueFn: func(ctx context.Context, installationID int64) (model.CachedToken, error) {
				return model.CachedToken{Token: "ghs_one", ExpiresAt: clock.Now().Add(time.Hour)}, nil
			},
		}
		manager = githubapp.NewCredentialManager(issuer,
			githubapp.WithClock(clock),
			githubapp.WithRefreshSkew(time.Minute),
		)
	})

	It("issues a token on first use and serves it from cache afterwards", func() {
		tok, err := manager.Token(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Token).To(Equal("ghs_one"))
		Expect(issuer.calls.Load()).To(Equal(int32(1)))

		clock.Advance(30 * time.Minute)
		tok, err = manager.Token(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Token).To(Equal("ghs_one"))
		Expect(issuer.calls.Load()).To(Equal(int32(1)))
	})

	It("caches per installation", func() {
		_, err := manager.Token(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		_, err = manager.Token(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(issuer.calls.Load()).To(Equal(int32(2)))
	})

	It("refreshes once the token is inside the skew window", func() {
		_, err := manager.Token(ctx, 1)
		Expect(err).NotTo(HaveOccurred())

		issuer.issueFn = func(ctx context.Context, installationID int64) (model.CachedToken, error) {
			return model.CachedToken{Token: "ghs_two", ExpiresAt: clock.Now().Add(time.Hour)}, nil
		}
		clock.Advance(59 * time.Minute)

		tok, err := manager.Token(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Token).To(Equal("ghs_two"))
		Expect(issuer.calls.Load()).To(Equal(int32(2)))
	})

	It("coalesces concurrent refreshes into one upstream call", func() {
		release := make(chan struct{})
		issuer.issueFn = func(ctx context.Context, installationID int64) (model.CachedToken, error) {
			<-release
			return model.CachedToken{Token: "ghs_shared", ExpiresAt: clock.Now().Add(time.Hour)}, nil
		}

		const callers = 8
		var wg sync.WaitGroup
		results := make([]string, callers)
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				tok, err := manager.Token(ctx, 7)
				results[i], errs[i] = tok.Token, err
			}(i)
		}

		Eventually(issuer.calls.Load).Should(Equal(int32(1)))
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		Expect(issuer.calls.Load()).To(Equal(int32(1)))
		for i := 0; i < callers; i++ {
			Expect(errs[i]).NotTo(HaveOccurred())
			Expect(results[i]).To(Equal("ghs_shared"))
		}
	})

	It("reports ErrCredential and keeps no token when issuance fails", func() {
		issuer.issueFn = func(ctx context.Context, installationID int64) (model.CachedToken, error) {
			return model.CachedToken{}, errors.New("connection refused")
		}

		_, err := manager.Token(ctx, 1)
		Expect(err).To(MatchError(githubapp.ErrCredential))
		Expect(err.Error()).To(ContainSubstring("connection refused"))

		issuer.issueFn = func(ctx context.Context, installationID int64) (model.CachedToken, error) {
			return model.CachedToken{Token: "ghs_recovered", ExpiresAt: clock.Now().Add(time.Hour)}, nil
		}
		tok, err := manager.Token(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Token).To(Equal("ghs_recovered"))
		Expect(issuer.calls.Load()).To(Equal(int32(2)))
	})

	It("drops an expired cached token when the refresh fails", func() {
		_, err := manager.Token(ctx, 1)
		Expect(err).NotTo(HaveOccurred())

		clock.Advance(2 * time.Hour)
		issuer.issueFn = func(ctx context.Context, installationID int64) (model.CachedToken, error) {
			return model.CachedToken{}, errors.New("HTTP 500")
		}

		tok, err := manager.Token(ctx, 1)
		Expect(err).To(MatchError(githubapp.ErrCredential))
		Expect(tok.Token).To(BeEmpty())
	})

	It("never hands out a token that is already expired", func() {
		issuer.issueFn = func(ctx context.Context, installationID int64) (model.CachedToken, error) {
			return model.CachedToken{Token: "ghs_stale", ExpiresAt: clock.Now()}, nil
		}

		_, err := manager.Token(ctx, 1)
		Expect(err).To(MatchError(githubapp.ErrCredential))
	})

	It("returns a short-lived token once without caching it", func() {
		issuer.issueFn = func(ctx context.Context, installationID int64) (model.CachedToken, error) {
			return model.CachedToken{Token: "ghs_short", ExpiresAt: clock.Now().Add(30 * time.Second)}, nil
		}

		tok, err := manager.Token(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.Token).To(Equal("ghs_short"))

		_, err = manager.Token(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(issuer.calls.Load()).To(Equal(int32(2)))
	})

	It("forgets a token on Invalidate", func() {
		_, err := manager.Token(ctx, 1)
		Expect(err).NotTo(HaveOccurred())

		manager.Invalidate(1)
		_, err = manager.Token(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(issuer.calls.Load()).To(Equal(int32(2)))
	})

	It("lets a waiting caller give up without failing the refresh", func() {
		release := make(chan struct{})
		issuer.issueFn = func(ctx context.Context, installationID int64) (model.CachedToken, error) {
			<-release
			return model.CachedToken{Token: "ghs_late", ExpiresAt: clock.Now().Add(time.Hour)}, nil
		}

		waitCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			_, err := manager.Token(waitCtx, 1)
			done <- err
		}()

		Eventually(issuer.calls.Load).Should(Equal(int32(1)))
		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))

		close(release)
		Eventually(func() string {
			tok, _ := manager.Token(ctx, 1)
			return tok.Token
		}).Should(Equal("ghs_late"))
		Expect(issuer.calls.Load()).To(Equal(int32(1)))
	})
})
