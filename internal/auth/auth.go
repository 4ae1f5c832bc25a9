// Package auth verifies access tokens issued by the hosted identity provider.
package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Viewer is the authenticated identity of a request.
type Viewer struct {
	ID    string
	Email string
}

type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Verifier checks HS256 tokens signed with the provider's shared secret.
type Verifier struct {
	Secret []byte
	Leeway time.Duration
}

func NewVerifier(secret string) Verifier {
	return Verifier{Secret: []byte(secret), Leeway: 30 * time.Second}
}

// Verify parses the token and returns the viewer it identifies.
func (v Verifier) Verify(token string) (Viewer, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Viewer{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	}, jwt.WithLeeway(v.Leeway), jwt.WithExpirationRequired())
	if err != nil {
		return Viewer{}, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Viewer{}, ErrInvalidToken
	}
	// The provider also signs anonymous-role tokens; those carry no user.
	if claims.Role == "anon" {
		return Viewer{}, ErrInvalidToken
	}
	return Viewer{ID: claims.Subject, Email: claims.Email}, nil
}

// Sign issues a token for id. Used by tests and local development seeding.
func (v Verifier) Sign(id, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Role:  "authenticated",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.Secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.Trim(strings.TrimSpace(parts[1]), "\"'")
}
