// Package auth provides the credential primitives for LocalQ: JWT issuance
// and validation, bcrypt password hashing, the Google OAuth code exchange,
// and the HTTP middleware that resolves the current user from a bearer token.
//
// The session model is deliberately stateless. A token carries the subject
// (internal user ID) and email inside a signed payload; the server keeps no
// session table and supports no revocation. "Logout" is purely a client-side
// discard — a token remains technically valid until its expiry, and the rest
// of the system is written to tolerate that.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTTL is the access token lifetime. There are no refresh tokens and no
// server-side denylist, so this is the only bound on a stolen token.
const tokenTTL = 24 * time.Hour

// Identity is the authenticated principal resolved from a token: the subject
// ID (our internal user ID) plus the email claim. The subject ID is the sole
// source of "current user" for every ownership check downstream.
type Identity struct {
	UserID string
	Email  string
}

// TokenService signs and verifies JWT access tokens with an HMAC secret.
// The same secret is used for both operations.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. "sub" carries the internal user ID; the email
// rides along as a private claim so the frontend can display it without an
// extra profile fetch.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Generate creates and signs an access token for the given identity.
//
// Signing algorithm: HS256 (HMAC-SHA256), symmetric — fine for a
// single-server deployment where issuer and verifier share the secret.
func (s *TokenService) Generate(id Identity) (string, error) {
	return s.generate(id, tokenTTL)
}

// GenerateWithDuration creates a token with a custom expiry. Used by tests
// to produce already-expired tokens.
func (s *TokenService) GenerateWithDuration(id Identity, d time.Duration) (string, error) {
	return s.generate(id, d)
}

func (s *TokenService) generate(id Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    "localq",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the embedded
// identity.
//
// Checks performed by the jwt library: signature, expiry, issuer, and that
// the algorithm really is HS256 (jwt.WithValidMethods guards against
// algorithm-confusion attacks where an attacker picks "none").
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("localq"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return Identity{}, fmt.Errorf("auth: token has no subject")
	}

	return Identity{UserID: c.Subject, Email: c.Email}, nil
}
