package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package. Only
// this package can create a key of this type, so no other package can read
// or shadow the identity we store in the request context.
type contextKey string

const identityKey contextKey = "identity"

// errNoToken is returned when the Authorization header is missing or not a
// bearer token.
var errNoToken = errors.New("auth: no bearer token")

// RequireAuth is a middleware that enforces authentication on protected
// routes.
//
// It reads the JWT from the "Authorization: Bearer <token>" header, validates
// it, and stores the resolved Identity in the request context. If the token
// is missing, invalid, or expired, it responds 401 and stops the chain. The
// frontend treats any 401 as "session over" and discards its stored token.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the identity if a valid token is present but never
// blocks the request. Used on public reads where an anonymous caller is
// fine. Handlers detect anonymity via IdentityFromContext returning false.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := extractIdentity(r, tokens); err == nil {
				ctx := context.WithValue(r.Context(), identityKey, id)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext retrieves the authenticated identity from the request
// context. Returns (Identity{}, false) if the request is anonymous.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// extractIdentity reads and validates the bearer token. Shared by
// RequireAuth and OptionalAuth.
func extractIdentity(r *http.Request, tokens *TokenService) (Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Identity{}, errNoToken
	}

	// "Bearer" is case-insensitive per RFC 6750.
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return Identity{}, errNoToken
	}

	return tokens.Validate(strings.TrimSpace(header[len(prefix):]))
}
