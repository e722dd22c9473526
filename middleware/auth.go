// Package middleware provides the cookie-based authentication gate for
// the proxied API routes.
package middleware

import (
	"net/http"

	"github.com/viobiscu/orion-ld-explorer/utils"
	"go.uber.org/zap"
)

const unauthorizedMessage = "Unauthorized access. Please log in first."

// CookieAuth gates requests on the presence of the access-token cookie.
// The token is not validated here; the upstream rejects stale tokens and
// the auth flows keep the cookie lifetime aligned with the token's.
type CookieAuth struct {
	logger *zap.Logger
}

// NewCookieAuth creates the authentication gate.
func NewCookieAuth(logger *zap.Logger) *CookieAuth {
	return &CookieAuth{logger: logger}
}

// RequireToken rejects requests without an access-token cookie.
// CORS preflights always pass; the browser sends no cookies with them.
func (m *CookieAuth) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || m.hasToken(r) {
			next.ServeHTTP(w, r)
			return
		}
		m.reject(w, r)
	})
}

// RequireTokenExceptGet is RequireToken with anonymous reads allowed,
// for upstreams whose catalog is public but whose writes are not.
func (m *CookieAuth) RequireTokenExceptGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || r.Method == http.MethodGet || m.hasToken(r) {
			next.ServeHTTP(w, r)
			return
		}
		m.reject(w, r)
	})
}

func (m *CookieAuth) hasToken(r *http.Request) bool {
	c, err := r.Cookie("access_token")
	return err == nil && c.Value != ""
}

func (m *CookieAuth) reject(w http.ResponseWriter, r *http.Request) {
	m.logger.Warn("unauthenticated request rejected",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	_ = utils.WriteUnauthorized(w, unauthorizedMessage)
}
