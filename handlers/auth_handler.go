package handlers

import (
	"net/http"

	"github.com/viobiscu/orion-ld-explorer/auth"
	"github.com/viobiscu/orion-ld-explorer/utils"
)

// AuthDeps provides the auth handler for route wiring
type AuthDeps interface {
	AuthHandler() *auth.Handler
}

// withAuth guards against a nil auth handler so every endpoint fails
// the same way when authentication is not configured.
func withAuth(deps AuthDeps, fn func(h *auth.Handler, w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h := deps.AuthHandler(); h != nil {
			fn(h, w, r)
			return
		}
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
	}
}

// AuthLoginHandler returns an http.HandlerFunc for the login endpoint
func AuthLoginHandler(deps AuthDeps) http.HandlerFunc {
	return withAuth(deps, (*auth.Handler).HandleLogin)
}

// AuthCallbackHandler returns an http.HandlerFunc for the OAuth callback endpoint
func AuthCallbackHandler(deps AuthDeps) http.HandlerFunc {
	return withAuth(deps, (*auth.Handler).HandleCallback)
}

// AuthRefreshHandler returns an http.HandlerFunc for the token refresh endpoint
func AuthRefreshHandler(deps AuthDeps) http.HandlerFunc {
	return withAuth(deps, (*auth.Handler).HandleRefresh)
}

// AuthLogoutHandler returns an http.HandlerFunc for the logout endpoint
func AuthLogoutHandler(deps AuthDeps) http.HandlerFunc {
	return withAuth(deps, (*auth.Handler).HandleLogout)
}

// AuthUserInfoHandler returns an http.HandlerFunc for the user identity endpoint
func AuthUserInfoHandler(deps AuthDeps) http.HandlerFunc {
	return withAuth(deps, (*auth.Handler).HandleUserInfo)
}

// AuthSetTenantHandler returns an http.HandlerFunc for the tenant override endpoint
func AuthSetTenantHandler(deps AuthDeps) http.HandlerFunc {
	return withAuth(deps, (*auth.Handler).HandleSetTenant)
}

// AuthVerifyTokenHandler returns an http.HandlerFunc for client-token verification
func AuthVerifyTokenHandler(deps AuthDeps) http.HandlerFunc {
	return withAuth(deps, (*auth.Handler).HandleVerifyToken)
}

// AuthDirectTokenHandler returns an http.HandlerFunc for the password grant endpoint
func AuthDirectTokenHandler(deps AuthDeps) http.HandlerFunc {
	return withAuth(deps, (*auth.Handler).HandleDirectToken)
}

// AuthTokenDetailsHandler returns an http.HandlerFunc for token introspection
func AuthTokenDetailsHandler(deps AuthDeps) http.HandlerFunc {
	return withAuth(deps, (*auth.Handler).HandleTokenDetails)
}

// AuthRetrieveTokenHandler returns an http.HandlerFunc for the token retrieval endpoint
func AuthRetrieveTokenHandler(deps AuthDeps) http.HandlerFunc {
	return withAuth(deps, (*auth.Handler).HandleRetrieveToken)
}
