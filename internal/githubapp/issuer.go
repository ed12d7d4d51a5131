package githubapp

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/jonboulle/clockwork"

	"github.com/Mohwit/github-app-issue-commenter/internal/model"
)

const (
	// GitHub rejects App JWTs that expire more than 10 minutes out.
	jwtLifetime = 9 * time.Minute
	// Backdate iat to tolerate clock drift between us and GitHub.
	jwtClockDrift = 60 * time.Second
)

// TokenIssuer mints a fresh installation token on every call.
type TokenIssuer interface {
	IssueToken(ctx context.Context, installationID int64) (model.CachedToken, error)
}

// ParsePrivateKey decodes a PEM RSA key in PKCS#1 or PKCS#8 form.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing github app private key: %w", err)
	}
	return key, nil
}

// AppTokenIssuer authenticates as the App and exchanges a JWT for an
// installation token through Client.
type AppTokenIssuer struct {
	appID  int64
	key    *rsa.PrivateKey
	client *Client
	clock  clockwork.Clock
}

func NewAppTokenIssuer(appID int64, key *rsa.PrivateKey, client *Client, clock clockwork.Clock) *AppTokenIssuer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AppTokenIssuer{
		appID:  appID,
		key:    key,
		client: client,
		clock:  clock,
	}
}

func (i *AppTokenIssuer) IssueToken(ctx context.Context, installationID int64) (model.CachedToken, error) {
	appJWT, err := i.AppJWT()
	if err != nil {
		return model.CachedToken{}, fmt.Errorf("%w: signing app jwt: %w", ErrCredential, err)
	}

	tok, err := i.client.CreateInstallationToken(ctx, appJWT, installationID)
	if err != nil {
		return model.CachedToken{}, fmt.Errorf("%w: installation %d: %w", ErrCredential, installationID, err)
	}
	return tok, nil
}

// AppJWT signs the App's identity JWT (iss = App ID).
func (i *AppTokenIssuer) AppJWT() (string, error) {
	now := i.clock.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(i.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-jwtClockDrift)),
		ExpiresAt: jwt.NewNumericDate(now.Add(jwtLifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(i.key)
}
