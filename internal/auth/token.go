package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgrijalva/jwt-go"

	"github.com/rpattn/maintops/internal/domain"
)

// ErrUnauthenticated is returned for a missing or invalid bearer token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims are the token claims issued by the identity provider. The role claim
// mirrors user_roles.rol.
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

// TokenVerifier validates HS256 bearer tokens.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier returns a verifier for tokens signed with secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses an Authorization header value and returns the caller it names.
// Tokens without a recognised role are treated as read-only.
func (v *TokenVerifier) Verify(header string) (Principal, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return Principal{}, fmt.Errorf("%w: authorization header required", ErrUnauthenticated)
	}
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Principal{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		role = domain.RoleReader
	}
	return Principal{Subject: claims.Subject, Role: role}, nil
}

// Sign issues a token for subject and role. The CLI and tests use it to mint
// local tokens.
func (v *TokenVerifier) Sign(subject string, role domain.Role, expiresAt int64) (string, error) {
	claims := Claims{
		Role: string(role),
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			ExpiresAt: expiresAt,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
