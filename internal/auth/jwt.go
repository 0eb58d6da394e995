package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/archiver/internal/apperr"
)

// JWT authenticates HS256-signed Bearer tokens. The subject claim is the
// caller identity.
type JWT struct {
	secret []byte
	now    func() time.Time
}

// NewJWT returns a JWT authenticator keyed by secret.
func NewJWT(secret []byte) *JWT {
	return &JWT{secret: secret, now: time.Now}
}

// Authenticate implements Authenticator.
func (j *JWT) Authenticate(r *http.Request) (Identity, error) {
	tok, ok := bearer(r)
	if !ok {
		return "", apperr.ErrUnauthenticated
	}
	return j.Verify(tok)
}

// Verify parses tokenString and returns its subject.
func (j *JWT) Verify(tokenString string) (Identity, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", apperr.ErrUnauthenticated
	}
	return Identity(claims.Subject), nil
}

// Issue signs a token for subject that expires after ttl.
func (j *JWT) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("auth: subject is required")
	}
	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}
