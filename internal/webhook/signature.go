// Package webhook authenticates inbound GitHub webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v66/github"
)

// SignatureHeader carries the HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Verify reports whether signatureHeader ("sha256=<hex>") is the HMAC-SHA256
// of body keyed by secret. body must be the exact bytes received. Never
// panics; any malformed input yields false.
func Verify(body []byte, signatureHeader, secret string) bool {
	return Check(body, signatureHeader, secret) == nil
}

// Check is Verify with the rejection reason, wrapped in ErrInvalidSignature.
func Check(body []byte, signatureHeader, secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: secret not configured", ErrInvalidSignature)
	}
	if signatureHeader == "" {
		return fmt.Errorf("%w: missing %s header", ErrInvalidSignature, SignatureHeader)
	}
	if !strings.HasPrefix(signatureHeader, signaturePrefix) {
		return fmt.Errorf("%w: unsupported algorithm", ErrInvalidSignature)
	}
	// GitHub always sends lowercase hex; anything else is not a digest it produced.
	if !isLowerHex(signatureHeader[len(signaturePrefix):]) {
		return fmt.Errorf("%w: malformed digest", ErrInvalidSignature)
	}
	// Constant-time comparison happens inside go-github (hmac.Equal).
	if err := github.ValidateSignature(signatureHeader, body, []byte(secret)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// Sign returns the header value GitHub would send for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

func isLowerHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
