package auth

import (
	"net/http"

	"github.com/viobiscu/orion-ld-explorer/keycloak"
	"github.com/viobiscu/orion-ld-explorer/token"
)

// Cookie names shared across the auth flows and the proxy gate.
const (
	// AccessTokenCookie holds the bearer token consumed by the broker proxy
	AccessTokenCookie = "access_token"
	// RefreshTokenCookie holds the longer-lived refresh credential
	RefreshTokenCookie = "refresh_token"
	// SessionCookie is the opaque per-browser session identifier
	SessionCookie = "explorer_session"
	// LoggedOutCookie is a script-readable marker surviving the logout redirect
	LoggedOutCookie = "logged_out"

	loggedOutCookieMaxAge = 60
)

// setTokenCookies writes the access and refresh token cookies for a
// freshly issued token pair. The refresh cookie lives twice as long as
// the access token so a refresh stays viable after one expiry.
func setTokenCookies(w http.ResponseWriter, pair *keycloak.TokenPair, secure bool) {
	expiresIn := pair.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = token.DefaultLifetime
	}
	setAccessCookie(w, pair.AccessToken, expiresIn, secure)
	if pair.RefreshToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     RefreshTokenCookie,
			Value:    pair.RefreshToken,
			Path:     "/",
			MaxAge:   expiresIn * 2,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// setAccessCookie writes the access token cookie with an explicit max-age
func setAccessCookie(w http.ResponseWriter, accessToken string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAuthCookies expires both token cookies
func clearAuthCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// setLoggedOutCookie sets the short-lived, script-readable logout marker
// so the frontend can detect a just-completed logout across the redirect
func setLoggedOutCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     LoggedOutCookie,
		Value:    "true",
		Path:     "/",
		MaxAge:   loggedOutCookieMaxAge,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearLoggedOutCookie removes a stale logout marker after a successful login
func clearLoggedOutCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   LoggedOutCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
