// Package signing issues and verifies HMAC-signed, expiring download URLs.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Signer generates and validates HMAC-SHA256 signatures bound to a filename
// and an expiry timestamp. One process-wide secret; changing it invalidates
// every previously issued URL.
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign returns the hex signature over "<filename>:<expiresUnix>".
func (s *Signer) Sign(filename string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", filename, expiresUnix)
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue builds a signed download URL for filename, valid for ttlSeconds.
// baseURL is the scheme://host prefix of the serving endpoint.
func (s *Signer) Issue(baseURL, filename string, ttlSeconds int64) (string, int64) {
	expiresAt := time.Now().Unix() + ttlSeconds
	token := s.Sign(filename, expiresAt)
	signed := fmt.Sprintf("%s/api/download/%s?expires=%d&token=%s",
		strings.TrimRight(baseURL, "/"), url.PathEscape(filename), expiresAt, token)
	return signed, expiresAt
}

// Verify checks a token against filename and the expires query value.
// It returns false when expires is missing, non-numeric, or in the past,
// and on any signature mismatch. Malformed input is a failed verification,
// never a panic.
func (s *Signer) Verify(filename, expires, token string) bool {
	if expires == "" || token == "" {
		return false
	}
	expiresUnix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	if expiresUnix < time.Now().Unix() {
		return false
	}
	expected := s.Sign(filename, expiresUnix)
	// hmac.Equal is constant time and handles mismatched lengths.
	return hmac.Equal([]byte(expected), []byte(token))
}
