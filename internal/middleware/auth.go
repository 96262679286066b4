package middleware

import (
	"context"
	"net/http"
	"strings"
)

// TokenVerifier checks an access token and returns the user id it carries.
type TokenVerifier interface {
	Verify(accessToken string) (string, error)
}

type ctxKey string

const userIDKey ctxKey = "userID"

// AccessTokenCookie is the cookie the session endpoints set for browser clients.
const AccessTokenCookie = "accessToken"

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// WithUserID stores the authenticated user id on the context. Exposed for tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequireAuth resolves the caller's identity from a bearer header or the
// access-token cookie and fails closed with onReject when it cannot.
func RequireAuth(verifier TokenVerifier, onReject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolveIdentity(verifier, r)
			if !ok {
				onReject(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth resolves the caller's identity when a valid token is present
// and degrades to anonymous otherwise. It never rejects the request.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := resolveIdentity(verifier, r); ok {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveIdentity(verifier TokenVerifier, r *http.Request) (string, bool) {
	if verifier == nil {
		return "", false
	}

	token := extractToken(r)
	if token == "" {
		return "", false
	}

	userID, err := verifier.Verify(token)
	if err != nil || userID == "" {
		return "", false
	}

	return userID, true
}

// extractToken prefers the bearer header over the cookie when both are present.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}

	return ""
}
