// Package auth authenticates the single admin user: a bcrypt password check
// that issues HS256 JWTs, token verification and logout by revocation.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"git.home.luguber.info/inful/portfolio/internal/config"
	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
)

const issuer = "portfolio"

// Claims are the JWT claims of an admin session.
type Claims struct {
	jwt.RegisteredClaims
}

// Session is returned by a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager issues and checks admin tokens.
type Manager struct {
	username  string
	hash      []byte
	secret    []byte
	ttl       time.Duration
	store     RevocationStore
	now       func() time.Time
	ephemeral bool
}

// NewManager builds a Manager from the auth configuration. Without a JWT
// secret a random one is generated; tokens then die with the process (see
// EphemeralSecret).
func NewManager(cfg config.AuthConfig, store RevocationStore) (*Manager, error) {
	m := &Manager{
		username: cfg.Username,
		hash:     []byte(cfg.PasswordHash),
		secret:   []byte(cfg.JWTSecret),
		ttl:      cfg.TokenTTL,
		store:    store,
		now:      time.Now,
	}
	if m.ttl <= 0 {
		m.ttl = config.DefaultTokenTTL
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	if len(m.secret) == 0 {
		m.secret = make([]byte, 32)
		if _, err := rand.Read(m.secret); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "generate token secret").Build()
		}
		m.ephemeral = true
	}
	return m, nil
}

// EphemeralSecret reports whether the signing secret was generated at startup.
func (m *Manager) EphemeralSecret() bool { return m.ephemeral }

// Configured reports whether an admin password hash is set.
func (m *Manager) Configured() bool { return len(m.hash) > 0 }

// Login checks the credentials and issues a token.
func (m *Manager) Login(_ context.Context, username, password string) (*Session, error) {
	if !m.Configured() {
		return nil, foundationerrors.AuthError("admin login is not configured").Build()
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(m.hash, []byte(password))
	if !userOK || passErr != nil {
		return nil, foundationerrors.AuthError("invalid credentials").Build()
	}

	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   m.username,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "sign token").Build()
	}
	return &Session{Token: token, ExpiresAt: exp.UTC().Truncate(time.Second)}, nil
}

// Verify parses token and rejects it when expired, forged or revoked.
func (m *Manager) Verify(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(m.username),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryAuth, msg).Build()
	}
	if claims.ID == "" {
		return nil, foundationerrors.AuthError("invalid token").Build()
	}
	revoked, err := m.store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "check token revocation").Build()
	}
	if revoked {
		return nil, foundationerrors.AuthError("token revoked").Build()
	}
	return claims, nil
}

// Revoke invalidates the token with these claims until it would expire anyway.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	until := m.now().Add(m.ttl)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := m.store.Revoke(ctx, claims.ID, until); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "revoke token").Build()
	}
	return nil
}

// HashPassword returns the bcrypt hash stored in auth.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", foundationerrors.ValidationError("password must not be empty").Build()
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryValidation, "hash password").Build()
	}
	return string(h), nil
}
