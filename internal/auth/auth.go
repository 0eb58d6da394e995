// Package auth establishes the identity of the caller of an archive operation.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/starford/archiver/internal/apperr"
)

// Identity is an authenticated caller. The zero value means "nobody".
type Identity string

// IsZero reports whether no identity was established.
func (id Identity) IsZero() bool { return id == "" }

func (id Identity) String() string { return string(id) }

// Authenticator resolves the caller of an inbound request.
// Implementations return apperr.ErrUnauthenticated when they cannot.
type Authenticator interface {
	Authenticate(r *http.Request) (Identity, error)
}

// Disabled treats every request as coming from a fixed local identity.
type Disabled struct {
	Identity Identity
}

// Authenticate implements Authenticator.
func (d Disabled) Authenticate(_ *http.Request) (Identity, error) {
	if d.Identity.IsZero() {
		return "", apperr.ErrUnauthenticated
	}
	return d.Identity, nil
}

// StaticToken accepts a single shared Bearer token.
type StaticToken struct {
	Token    string
	Identity Identity
}

// Authenticate implements Authenticator.
func (s StaticToken) Authenticate(r *http.Request) (Identity, error) {
	tok, ok := bearer(r)
	if !ok || s.Token == "" || subtle.ConstantTimeCompare([]byte(tok), []byte(s.Token)) != 1 {
		return "", apperr.ErrUnauthenticated
	}
	return s.Identity, nil
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity, or the zero value.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
