// Package middleware provides HTTP filters for authentication and request
// logging on the portal server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	pkglog "CreditPulse/pkg/log"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// contextKey is a private key type to avoid context collisions
type contextKey string

const bearerTokenKey contextKey = "bearer_token"

// Auth extracts the session bearer token from the Authorization header (or
// X-Session-Token as a fallback) and injects it into the request context.
// Session resolution happens in the service layer; this filter only carries
// the credential and logs it in masked form.
func Auth(logger *pkglog.LogHelper) khttp.FilterFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if auth := r.Header.Get("Authorization"); auth != "" {
				token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
			if token == "" {
				token = r.Header.Get("X-Session-Token")
			}

			if token != "" {
				// SanitizeField masks the token value
				logger.Auth("bearer token received", "token", token)
				r = r.WithContext(WithToken(r.Context(), token))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithToken stores the bearer token in the context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey, token)
}

// TokenFromContext returns the bearer token carried by the context, or "".
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(bearerTokenKey).(string)
	return token
}
