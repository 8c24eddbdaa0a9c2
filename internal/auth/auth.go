// Package auth issues and verifies the bearer tokens used by the HTTP API.
//
// Tokens are HS256 JWTs carrying the configured user id. When no users are
// configured authentication is disabled and every request acts as the
// local operator with full permissions.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"audioshelf/internal/config"
)

const issuer = "audioshelf"

var (
	// ErrUnauthorized is returned for missing, malformed or expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnknownUser is returned when a token names a user that is no longer
	// configured.
	ErrUnknownUser = errors.New("unknown user")
)

// LocalOperator is the identity used when authentication is disabled.
var LocalOperator = config.User{ID: "local", Username: "local", CanUpdate: true, CanDelete: true, CanUpload: true}

// Claims is the JWT payload.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Authenticator signs and checks tokens against the configured users.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	users  map[string]config.User
	now    func() time.Time
}

// New builds an authenticator from the auth section of cfg.
func New(cfg *config.Config) *Authenticator {
	users := make(map[string]config.User, len(cfg.Auth.Users))
	for _, u := range cfg.Auth.Users {
		users[u.ID] = u
	}
	return &Authenticator{
		secret: []byte(cfg.Auth.TokenSecret),
		ttl:    time.Duration(cfg.Auth.TokenTTLHours) * time.Hour,
		users:  users,
		now:    time.Now,
	}
}

// Enabled reports whether requests must carry a token.
func (a *Authenticator) Enabled() bool {
	return len(a.users) > 0
}

// Issue signs a token for a configured user.
func (a *Authenticator) Issue(userID string) (string, time.Time, error) {
	if _, ok := a.users[userID]; !ok {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	if len(a.secret) == 0 {
		return "", time.Time{}, errors.New("token secret is not configured")
	}
	now := a.now()
	expires := now.Add(a.ttl)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks a token and returns the user it names.
func (a *Authenticator) Verify(token string) (config.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return config.User{}, ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return config.User{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return config.User{}, ErrUnauthorized
	}
	user, ok := a.users[claims.UserID]
	if !ok {
		return config.User{}, fmt.Errorf("%w: %s", ErrUnknownUser, claims.UserID)
	}
	return user, nil
}

// FromHeader extracts the token from an "Authorization: Bearer" value.
func FromHeader(value string) string {
	token, ok := strings.CutPrefix(value, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
