package githubapp_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Mohwit/github-app-issue-commenter/internal/githubapp"
)

func generateTestKeyPEM() []byte {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	Expect(err).NotTo(HaveOccurred())
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

var _ = Describe("GitHub App client", func() {
	var (
		ctx        context.Context
		server     *httptest.Server
		mux        *http.ServeMux
		client     *githubapp.Client
		keyPEM     []byte
		key        *rsa.PrivateKey
		clock      *clockwork.FakeClock
		tokenCalls atomic.Int32
	)

	BeforeEach(func() {
		ctx = context.Background()
		mux = http.NewServeMux()
		server = httptest.NewServer(mux)
		DeferCleanup(server.Close)

		var err error
		client, err = githubapp.NewClient(server.URL, server.Client())
		Expect(err).NotTo(HaveOccurred())

		keyPEM = generateTestKeyPEM()
		key, err = githubapp.ParsePrivateKey(keyPEM)
		Expect(err).NotTo(HaveOccurred())

		clock = clockwork.NewFakeClockAt(time.Now().Truncate(time.Second))
		tokenCalls.Store(0)
	})

	Describe("ParsePrivateKey", func() {
		It("accepts PKCS#8 keys", func() {
			der, err := x509.MarshalPKCS8PrivateKey(key)
			Expect(err).NotTo(HaveOccurred())
			parsed, err := githubapp.ParsePrivateKey(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.N).To(Equal(key.N))
		})

		It("rejects garbage", func() {
			_, err := githubapp.ParsePrivateKey([]byte("not a key"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("AppTokenIssuer", func() {
		It("signs an RS256 JWT with the app id as issuer", func() {
			issuer := githubapp.NewAppTokenIssuer(12345, key, client, clock)
			signed, err := issuer.AppJWT()
			Expect(err).NotTo(HaveOccurred())

			claims := &jwt.RegisteredClaims{}
			parsed, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (any, error) {
				Expect(t.Method).To(Equal(jwt.SigningMethodRS256))
				return &key.PublicKey, nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Valid).To(BeTrue())
			Expect(claims.Issuer).To(Equal("12345"))
			Expect(claims.IssuedAt.Time).To(BeTemporally("==", clock.Now().Add(-60*time.Second)))
			Expect(claims.ExpiresAt.Time.Sub(clock.Now())).To(BeNumerically("<=", 10*time.Minute))
		})

		It("exchanges the JWT for an installation token", func() {
			expiresAt := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
			mux.HandleFunc("POST /app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				tokenCalls.Add(1)
				auth := r.Header.Get("Authorization")
				Expect(auth).To(HavePrefix("Bearer "))
				_, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (any, error) {
					return &key.PublicKey, nil
				})
				Expect(err).NotTo(HaveOccurred())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"token":      "ghs_installation",
					"expires_at": expiresAt.Format(time.RFC3339),
				})
			})

			issuer := githubapp.NewAppTokenIssuer(12345, key, client, clockwork.NewRealClock())
			tok, err := issuer.IssueToken(ctx, 99)
			Expect(err).NotTo(HaveOccurred())
			Expect(tok.Token).To(Equal("ghs_installation"))
			Expect(tok.ExpiresAt.Equal(expiresAt)).To(BeTrue())
			Expect(tokenCalls.Load()).To(Equal(int32(1)))
		})

		It("wraps a rejected exchange in ErrCredential", func() {
			mux.HandleFunc("POST /app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"A JSON web token could not be decoded"}`)
			})

			issuer := githubapp.NewAppTokenIssuer(12345, key, client, nil)
			_, err := issuer.IssueToken(ctx, 99)
			Expect(err).To(MatchError(githubapp.ErrCredential))
			Expect(err).To(MatchError(githubapp.ErrUpstreamAPI))
			Expect(githubapp.StatusCode(err)).To(Equal(http.StatusUnauthorized))
		})

		It("treats a response without a token as a credential failure", func() {
			mux.HandleFunc("POST /app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				_, _ = io.WriteString(w, `{}`)
			})

			issuer := githubapp.NewAppTokenIssuer(12345, key, client, nil)
			_, err := issuer.IssueToken(ctx, 99)
			Expect(err).To(MatchError(githubapp.ErrCredential))
		})
	})

	Describe("CreateIssueComment", func() {
		It("posts the body with the installation token", func() {
			mux.HandleFunc("POST /repos/o/r/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer ghs_installation"))
				var req struct {
					Body string `json:"body"`
				}
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Body).To(Equal("thanks!"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				_, _ = io.WriteString(w, `{"id": 7001, "body": "thanks!"}`)
			})

			id, err := client.CreateIssueComment(ctx, "ghs_installation", "o/r", 42, "thanks!")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(int64(7001)))
		})

		It("wraps failures in ErrUpstreamAPI", func() {
			mux.HandleFunc("POST /repos/o/r/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"message":"Not Found"}`)
			})

			_, err := client.CreateIssueComment(ctx, "ghs_installation", "o/r", 42, "thanks!")
			Expect(err).To(MatchError(githubapp.ErrUpstreamAPI))
			Expect(githubapp.StatusCode(err)).To(Equal(http.StatusNotFound))
		})

		It("rejects a malformed repository name without calling GitHub", func() {
			_, err := client.CreateIssueComment(ctx, "ghs_installation", "just-a-name", 42, "thanks!")
			Expect(err).To(MatchError(githubapp.ErrUpstreamAPI))
		})
	})

	DescribeTable("SplitRepository",
		func(fullName, owner, repo string, ok bool) {
			o, r, valid := githubapp.SplitRepository(fullName)
			Expect(valid).To(Equal(ok))
			Expect(o).To(Equal(owner))
			Expect(r).To(Equal(repo))
		},
		Entry("owner/name", "o/r", "o", "r", true),
		Entry("no slash", "or", "", "", false),
		Entry("empty owner", "/r", "", "", false),
		Entry("nested", "o/r/x", "", "", false),
	)

	It("refuses non-http base urls", func() {
		_, err := githubapp.NewClient("ftp://example.com", nil)
		Expect(err).To(HaveOccurred())
	})
})
