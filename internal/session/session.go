// Package session supplies the signed-in user's identity.
//
// The hosted auth service issues HS256 access tokens. Middleware verifies
// the bearer token on each request and stores the resulting Identity in the
// request context; handlers read it back through a Provider and never touch
// the record store without one.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoSession    = errors.New("no active session")
	ErrInvalidToken = errors.New("invalid session token")
	ErrRevoked      = errors.New("session token revoked")
)

// Identity is the authenticated user behind a request.
type Identity struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`

	// Token is the raw bearer token, forwarded to the record store.
	Token string `json:"-"`
	key   string
}

// Provider answers who is signed in for a request.
type Provider interface {
	Identity(ctx context.Context) (Identity, bool)
	SignOut(ctx context.Context) error
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// TokenFromContext returns the bearer token of the request's session, or "".
func TokenFromContext(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.Token
}

// Static always reports the same identity. It backs local development and
// tests where no auth service is available.
type Static struct {
	ID Identity
}

func (s Static) Identity(ctx context.Context) (Identity, bool) {
	if id, ok := FromContext(ctx); ok {
		return id, true
	}
	return s.ID, s.ID.UserID != ""
}

func (s Static) SignOut(context.Context) error { return nil }
