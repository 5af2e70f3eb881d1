package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"savvy/internal/cache"
)

type userMetadata struct {
	FullName string `json:"full_name,omitempty"`
}

type claims struct {
	Email        string       `json:"email,omitempty"`
	UserMetadata userMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// JWTProvider verifies HS256 access tokens and tracks sign-outs.
type JWTProvider struct {
	secret  []byte
	revoked *cache.ExpirySet
	now     func() time.Time
	logger  *slog.Logger
}

// NewJWTProvider uses revoked to remember signed-out tokens until they
// expire on their own. A nil set starts empty.
func NewJWTProvider(secret []byte, revoked *cache.ExpirySet, logger *slog.Logger) (*JWTProvider, error) {
	if len(secret) == 0 {
		return nil, errors.New("session: empty JWT secret")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if revoked == nil {
		revoked = cache.NewExpirySet()
	}
	return &JWTProvider{secret: secret, revoked: revoked, now: time.Now, logger: logger}, nil
}

// WithClock replaces the time source used for expiry checks.
func (p *JWTProvider) WithClock(now func() time.Time) *JWTProvider {
	p.now = now
	return p
}

// Authenticate verifies a raw token.
func (p *JWTProvider) Authenticate(raw string) (Identity, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !tok.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	id := Identity{
		UserID:    c.Subject,
		Email:     c.Email,
		FullName:  c.UserMetadata.FullName,
		ExpiresAt: c.ExpiresAt.Time,
		Token:     raw,
		key:       revocationKey(c.ID, raw),
	}
	if p.revoked.Contains(id.key) {
		return Identity{}, ErrRevoked
	}
	return id, nil
}

// Identity implements Provider. A token revoked after the request started
// is no longer reported.
func (p *JWTProvider) Identity(ctx context.Context) (Identity, bool) {
	id, ok := FromContext(ctx)
	if !ok {
		return Identity{}, false
	}
	if p.revoked.Contains(id.key) {
		return Identity{}, false
	}
	return id, true
}

// SignOut revokes the request's token until its expiry.
func (p *JWTProvider) SignOut(ctx context.Context) error {
	id, ok := p.Identity(ctx)
	if !ok {
		return ErrNoSession
	}
	if !id.ExpiresAt.After(p.now()) {
		return nil
	}
	p.revoked.Add(id.key, id.ExpiresAt)
	p.logger.InfoContext(ctx, "session signed out", "user_id", id.UserID)
	return nil
}

// Issue signs a token for userID. It is used by the admin CLI and tests to
// mint tokens with the shared secret.
func (p *JWTProvider) Issue(userID, email, fullName string, ttl time.Duration) (string, error) {
	now := p.now()
	c := claims{
		Email:        email,
		UserMetadata: userMetadata{FullName: fullName},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
}

// Middleware attaches the identity of a valid bearer token. Requests with
// no token or a bad one continue unauthenticated; handlers decide.
func (p *JWTProvider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := p.Authenticate(raw)
		if err != nil {
			p.logger.DebugContext(r.Context(), "rejected session token", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func revocationKey(jti, raw string) string {
	if jti != "" {
		return "jti:" + jti
	}
	sum := sha256.Sum256([]byte(raw))
	return "sha:" + hex.EncodeToString(sum[:])
}

var _ Provider = (*JWTProvider)(nil)
