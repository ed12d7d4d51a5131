package model

import "time"

// CachedToken is a GitHub App installation access token.
type CachedToken struct {
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidAt reports whether the token can still be handed out at now with
// the given safety margin before expiry.
func (t *CachedToken) ValidAt(now time.Time, skew time.Duration) bool {
	if t == nil || t.Token == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-skew))
}
