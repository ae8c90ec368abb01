package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidToken is returned for missing, forged or expired file tokens.
var ErrInvalidToken = errors.New("invalid file token")

// URLSigner issues short-lived HMAC tokens bound to a blob key.
type URLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewURLSigner returns a signer. An empty secret gets a random one, which
// invalidates outstanding URLs on restart.
func NewURLSigner(secret string, ttl time.Duration) *URLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if strings.TrimSpace(secret) == "" {
		secret = uuid.New().String()
	}
	return &URLSigner{secret: []byte(secret), ttl: ttl}
}

// Sign returns a token for key valid until now+ttl.
func (s *URLSigner) Sign(key string, now time.Time) string {
	expires := now.Add(s.ttl).Unix()
	payload := fmt.Sprintf("%d:%s", expires, key)
	raw := fmt.Sprintf("%s:%s", s.mac(payload), payload)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Verify checks that token was issued for key and has not expired.
func (s *URLSigner) Verify(key, token string, now time.Time) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: missing token", ErrInvalidToken)
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("%w: decode token: %v", ErrInvalidToken, err)
	}
	// Keys may contain colons, so the key is the unsplit remainder.
	parts := strings.SplitN(string(decoded), ":", 3)
	if len(parts) != 3 {
		return fmt.Errorf("%w: invalid token format", ErrInvalidToken)
	}
	signature, expiresRaw, tokenKey := parts[0], parts[1], parts[2]
	if tokenKey != key {
		return fmt.Errorf("%w: token does not match file", ErrInvalidToken)
	}
	expires, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid token expiration", ErrInvalidToken)
	}
	if now.Unix() > expires {
		return fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: invalid token signature", ErrInvalidToken)
	}
	expected, _ := hex.DecodeString(s.mac(expiresRaw + ":" + tokenKey))
	if !hmac.Equal(expected, provided) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}
	return nil
}

func (s *URLSigner) mac(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
