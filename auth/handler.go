// Package auth orchestrates the browser-facing authentication flows
// against Keycloak: login redirect, callback exchange, refresh, logout,
// direct (password) grant, and client-token verification. Tokens are
// persisted as HTTP-only cookies plus a server-side session record.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viobiscu/orion-ld-explorer/config"
	"github.com/viobiscu/orion-ld-explorer/keycloak"
	"github.com/viobiscu/orion-ld-explorer/session"
	"github.com/viobiscu/orion-ld-explorer/token"
	"github.com/viobiscu/orion-ld-explorer/utils"
	"go.uber.org/zap"
)

const oauthScopes = "openid profile email"

// Exchanger is the outbound identity provider surface the flows need.
type Exchanger interface {
	ExchangeToken(ctx context.Context, params url.Values) (*keycloak.TokenPair, error)
	Invalidate(ctx context.Context, refreshToken string) error
}

// Handler handles the OAuth2 authentication flows.
type Handler struct {
	cfg      *config.Config
	idp      Exchanger
	sessions session.Store
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a new auth handler.
func NewHandler(cfg *config.Config, idp Exchanger, sessions session.Store, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		idp:      idp,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleLogin starts the authorization-code flow: a fresh state token
// is stored in the session and the browser is redirected to Keycloak.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	sid := h.ensureSessionID(w, r)
	state := uuid.NewString()

	rec, _, err := h.sessions.Get(r.Context(), sid)
	if err != nil {
		h.logger.Error("failed to load session", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to initiate login")
		return
	}
	rec.OAuthState = state
	if err := h.sessions.Put(r.Context(), sid, rec); err != nil {
		h.logger.Error("failed to store oauth state", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to initiate login")
		return
	}

	params := url.Values{
		"client_id":     {h.cfg.Keycloak.ClientID},
		"redirect_uri":  {h.callbackURL(r)},
		"response_type": {"code"},
		"scope":         {oauthScopes},
		"state":         {state},
	}
	authURL := h.cfg.Keycloak.AuthURL + "?" + params.Encode()

	h.logger.Debug("starting login flow", zap.String("auth_url", h.cfg.Keycloak.AuthURL))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback validates the state token, exchanges the authorization
// code for tokens, and establishes the session and token cookies.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	stored := h.consumeState(w, r)

	if state == "" || stored == "" || state != stored {
		h.logger.Error("state mismatch in callback",
			zap.String("received", state))
		_ = utils.WriteBadRequest(w, "Invalid state parameter")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Error("no authorization code in callback")
		_ = utils.WriteBadRequest(w, "No authorization code provided")
		return
	}

	pair, err := h.idp.ExchangeToken(r.Context(), url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {h.callbackURL(r)},
	})
	if err != nil {
		h.logger.Error("token exchange failed", zap.Error(err))
		if provErr, ok := err.(*keycloak.ProviderError); ok {
			_ = utils.WriteBadRequest(w, "Failed to retrieve token: "+provErr.Body)
			return
		}
		_ = utils.WriteInternalServerError(w, fmt.Sprintf("Error processing callback: %v", err))
		return
	}

	clearLoggedOutCookie(w)
	if _, err := h.applyTokens(w, r, pair); err != nil {
		// The broker may still accept the token; keep the cookies and
		// just skip the session record, like a decode failure mid-flow.
		h.logger.Warn("failed to extract user info from token", zap.Error(err))
	}

	http.Redirect(w, r, h.frontendURL(r), http.StatusFound)
}

// HandleRefresh exchanges the refresh-token cookie for a new token pair.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshCookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil || refreshCookie.Value == "" {
		h.logger.Warn("refresh token missing in request")
		_ = utils.WriteUnauthorized(w, "No refresh token available")
		return
	}

	pair, err := h.idp.ExchangeToken(r.Context(), url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshCookie.Value},
	})
	if err != nil {
		h.logger.Error("token refresh failed", zap.Error(err))
		if _, ok := err.(*keycloak.ProviderError); ok {
			_ = utils.WriteUnauthorized(w, "Failed to refresh token")
			return
		}
		_ = utils.WriteInternalServerError(w, fmt.Sprintf("Error refreshing token: %v", err))
		return
	}

	if _, err := h.applyTokens(w, r, pair); err != nil {
		h.logger.Warn("failed to extract user info from token", zap.Error(err))
	}

	_ = utils.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleLogout invalidates the refresh token at Keycloak (best effort),
// clears session and cookies, and redirects back to the frontend with
// cache-defeating logout parameters.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if refreshCookie, err := r.Cookie(RefreshTokenCookie); err == nil && refreshCookie.Value != "" {
		if err := h.idp.Invalidate(r.Context(), refreshCookie.Value); err != nil {
			// Logout must always succeed from the browser's perspective.
			h.logger.Warn("keycloak logout failed", zap.Error(err))
		}
	}

	if sidCookie, err := r.Cookie(SessionCookie); err == nil && sidCookie.Value != "" {
		if err := h.sessions.Clear(r.Context(), sidCookie.Value); err != nil {
			h.logger.Warn("failed to clear session", zap.Error(err))
		}
	}

	clearAuthCookies(w, h.cfg.Session.SecureCookies)
	setLoggedOutCookie(w)

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	redirectURL := fmt.Sprintf("%s?logout=success&no_auto_login=true&t=%d",
		h.frontendURL(r), h.now().Unix())
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// userResponse is the body shape for user-identity endpoints.
type userResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *session.User `json:"user,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// HandleUserInfo reports the identity held in the access-token cookie.
// It never fails: an absent or undecodable token means unauthenticated.
func (h *Handler) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	accessCookie, err := r.Cookie(AccessTokenCookie)
	if err != nil || accessCookie.Value == "" {
		_ = utils.WriteJSON(w, http.StatusOK, userResponse{Authenticated: false})
		return
	}

	claims, err := token.Decode(accessCookie.Value)
	if err != nil {
		h.logger.Warn("failed to decode access token", zap.Error(err))
		_ = utils.WriteJSON(w, http.StatusOK, userResponse{Authenticated: false, Error: err.Error()})
		return
	}

	sid := h.ensureSessionID(w, r)
	rec, _, err := h.sessions.Get(r.Context(), sid)
	if err != nil {
		h.logger.Warn("failed to load session", zap.Error(err))
	}

	tenant := token.ResolveTenant(claims, rec.Tenant)
	user := session.User{Username: token.Username(claims), Tenant: tenant}

	rec.User = user
	rec.Tenant = tenant
	if err := h.sessions.Put(r.Context(), sid, rec); err != nil {
		h.logger.Warn("failed to update session", zap.Error(err))
	}

	_ = utils.WriteJSON(w, http.StatusOK, userResponse{Authenticated: true, User: &user})
}

type tenantRequest struct {
	Tenant string `json:"tenant" validate:"required"`
}

// HandleSetTenant overrides the session's active tenant.
func (h *Handler) HandleSetTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || utils.ValidateStruct(req) != nil {
		h.logger.Warn("no tenant provided in request")
		_ = utils.WriteBadRequest(w, "No tenant provided")
		return
	}

	sid := h.ensureSessionID(w, r)
	rec, _, err := h.sessions.Get(r.Context(), sid)
	if err != nil {
		h.logger.Error("failed to load session", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to store tenant")
		return
	}
	rec.Tenant = req.Tenant
	if err := h.sessions.Put(r.Context(), sid, rec); err != nil {
		h.logger.Error("failed to store tenant", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to store tenant")
		return
	}

	h.logger.Debug("tenant set", zap.String("tenant", req.Tenant))
	_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tenant":  req.Tenant,
	})
}

type verifyTokenRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

// HandleVerifyToken accepts a client-held access token, decodes it, and
// establishes the backend session and access cookie. No new tokens are
// minted; the cookie lifetime is derived from the token's own claims.
func (h *Handler) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || utils.ValidateStruct(req) != nil {
		h.logger.Error("no access token provided in request")
		_ = utils.WriteBadRequest(w, "No access token provided")
		return
	}

	claims, err := token.Decode(req.AccessToken)
	if err != nil {
		h.logger.Warn("invalid token submitted for verification", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid token format")
		return
	}

	user := h.storeUser(w, r, claims)
	setAccessCookie(w, req.AccessToken, token.Lifetime(claims), h.cfg.Session.SecureCookies)

	h.logger.Debug("token verified", zap.String("username", user.Username))
	_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

type directTokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleDirectToken performs the resource-owner password grant and
// returns the raw token pair alongside the cookie-based session, for
// clients that cannot rely on cookies.
func (h *Handler) HandleDirectToken(w http.ResponseWriter, r *http.Request) {
	var req directTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || utils.ValidateStruct(req) != nil {
		h.logger.Error("missing credentials in request")
		_ = utils.WriteBadRequest(w, "Username and password are required")
		return
	}

	pair, err := h.idp.ExchangeToken(r.Context(), url.Values{
		"grant_type": {"password"},
		"username":   {req.Username},
		"password":   {req.Password},
		"scope":      {oauthScopes},
	})
	if err != nil {
		h.logger.Error("direct token retrieval failed", zap.Error(err))
		if provErr, ok := err.(*keycloak.ProviderError); ok {
			_ = utils.WriteUnauthorized(w, "Authentication failed: "+provErr.Description("Invalid credentials"))
			return
		}
		_ = utils.WriteInternalServerError(w, fmt.Sprintf("Error getting direct token: %v", err))
		return
	}

	user, err := h.applyTokens(w, r, pair)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid token format")
		return
	}

	h.logger.Debug("direct token retrieved", zap.String("username", user.Username))
	_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"user":          user,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
		"token_type":    pair.TokenType,
	})
}

// HandleTokenDetails returns the decoded header and claims of the
// access-token cookie. Only truncated previews of the token and its
// signature are exposed, never the full secret material.
func (h *Handler) HandleTokenDetails(w http.ResponseWriter, r *http.Request) {
	accessCookie, err := r.Cookie(AccessTokenCookie)
	if err != nil || accessCookie.Value == "" {
		_ = utils.WriteJSON(w, http.StatusOK, userResponse{Authenticated: false, Error: "No token available"})
		return
	}

	details, err := token.DecodeDetails(accessCookie.Value)
	if err != nil {
		h.logger.Error("failed to decode access token", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid token format")
		return
	}

	payload := make(map[string]interface{}, len(details.Claims)+2)
	for k, v := range details.Claims {
		payload[k] = v
	}
	if exp, ok := payload["exp"].(float64); ok {
		payload["expiration_formatted"] = time.Unix(int64(exp), 0).Format("2006-01-02 15:04:05")
	}
	if iat, ok := payload["iat"].(float64); ok {
		payload["issued_at_formatted"] = time.Unix(int64(iat), 0).Format("2006-01-02 15:04:05")
	}

	_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"token_preview": truncate(accessCookie.Value, 20),
		"header":        details.Header,
		"payload":       payload,
		"signature":     truncate(details.Signature, 10),
	})
}

// tokenStatusResponse is the body shape for retrieve-token outcomes.
type tokenStatusResponse struct {
	Success       bool          `json:"success"`
	Authenticated bool          `json:"authenticated"`
	AccessToken   string        `json:"access_token,omitempty"`
	IDToken       string        `json:"id_token,omitempty"`
	ExpiresIn     int           `json:"expires_in,omitempty"`
	User          *session.User `json:"user,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// HandleRetrieveToken hands the cookie-held access token back to the
// client so it can mirror the auth state into localStorage (Chrome
// third-party cookie workaround). An expired or missing access token is
// refreshed when a refresh cookie is available.
func (h *Handler) HandleRetrieveToken(w http.ResponseWriter, r *http.Request) {
	accessToken := cookieValue(r, AccessTokenCookie)
	refreshToken := cookieValue(r, RefreshTokenCookie)

	if accessToken == "" {
		if refreshToken == "" {
			_ = utils.WriteJSON(w, http.StatusUnauthorized, tokenStatusResponse{Error: "No token available"})
			return
		}
		h.refreshAndReturn(w, r, refreshToken)
		return
	}

	claims, err := token.Decode(accessToken)
	if err != nil {
		h.logger.Error("failed to decode access token", zap.Error(err))
		_ = utils.WriteJSON(w, http.StatusInternalServerError, tokenStatusResponse{Error: err.Error()})
		return
	}

	if token.Expired(claims, h.now()) {
		if refreshToken != "" {
			h.logger.Debug("access token expired, redirecting to refresh")
			http.Redirect(w, r, "/api/auth/refresh", http.StatusFound)
			return
		}
		_ = utils.WriteJSON(w, http.StatusUnauthorized, tokenStatusResponse{Error: "Token is expired"})
		return
	}

	user := h.storeUser(w, r, claims)
	_ = utils.WriteJSON(w, http.StatusOK, tokenStatusResponse{
		Success:       true,
		Authenticated: true,
		AccessToken:   accessToken,
		ExpiresIn:     token.ExpiresIn(claims, h.now()),
		User:          &user,
	})
}

// refreshAndReturn performs an inline refresh for retrieve-token when
// only the refresh cookie survived.
func (h *Handler) refreshAndReturn(w http.ResponseWriter, r *http.Request, refreshToken string) {
	pair, err := h.idp.ExchangeToken(r.Context(), url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		h.logger.Error("token refresh failed", zap.Error(err))
		if _, ok := err.(*keycloak.ProviderError); ok {
			_ = utils.WriteJSON(w, http.StatusUnauthorized, tokenStatusResponse{Error: "Failed to refresh token"})
			return
		}
		_ = utils.WriteJSON(w, http.StatusInternalServerError, tokenStatusResponse{Error: err.Error()})
		return
	}

	user, err := h.applyTokens(w, r, pair)
	if err != nil {
		_ = utils.WriteJSON(w, http.StatusInternalServerError, tokenStatusResponse{Error: err.Error()})
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, tokenStatusResponse{
		Success:       true,
		Authenticated: true,
		AccessToken:   pair.AccessToken,
		IDToken:       pair.IDToken,
		ExpiresIn:     pair.ExpiresIn,
		User:          &user,
	})
}

// applyTokens decodes the new access token, stores the session record,
// and sets both token cookies. Cookies are written even when the claim
// extraction fails, since the broker may still accept the raw token.
func (h *Handler) applyTokens(w http.ResponseWriter, r *http.Request, pair *keycloak.TokenPair) (session.User, error) {
	var user session.User
	claims, err := token.Decode(pair.AccessToken)
	if err == nil {
		user = h.storeUser(w, r, claims)
	}
	setTokenCookies(w, pair, h.cfg.Session.SecureCookies)
	return user, err
}

// storeUser resolves the tenant from claims and overwrites the session
// record for this browser session.
func (h *Handler) storeUser(w http.ResponseWriter, r *http.Request, claims map[string]interface{}) session.User {
	tenant := token.ResolveTenant(claims, "")
	user := session.User{Username: token.Username(claims), Tenant: tenant}

	sid := h.ensureSessionID(w, r)
	if err := h.sessions.Put(r.Context(), sid, session.Record{User: user, Tenant: tenant}); err != nil {
		h.logger.Warn("failed to store session", zap.Error(err))
	}
	return user
}

// consumeState reads and discards the pending OAuth state token.
// The state is single-use: it is cleared regardless of whether the
// callback validation succeeds.
func (h *Handler) consumeState(w http.ResponseWriter, r *http.Request) string {
	sidCookie, err := r.Cookie(SessionCookie)
	if err != nil || sidCookie.Value == "" {
		return ""
	}
	rec, ok, err := h.sessions.Get(r.Context(), sidCookie.Value)
	if err != nil || !ok {
		return ""
	}
	stored := rec.OAuthState
	rec.OAuthState = ""
	if err := h.sessions.Put(r.Context(), sidCookie.Value, rec); err != nil {
		h.logger.Warn("failed to discard oauth state", zap.Error(err))
	}
	return stored
}

// ensureSessionID returns the browser's session id, minting a new one
// and setting the session cookie when absent.
func (h *Handler) ensureSessionID(w http.ResponseWriter, r *http.Request) string {
	if sidCookie, err := r.Cookie(SessionCookie); err == nil && sidCookie.Value != "" {
		return sidCookie.Value
	}
	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.Session.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	// Later lookups within this request must see the fresh id.
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: sid})
	return sid
}

// callbackURL computes the OAuth redirect URI from the request's own origin
func (h *Handler) callbackURL(r *http.Request) string {
	return requestOrigin(r) + "/api/auth/callback"
}

// frontendURL determines where to send the browser after a flow ends:
// the Origin header when present, otherwise the request's own host.
func (h *Handler) frontendURL(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	return requestOrigin(r)
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func cookieValue(r *http.Request, name string) string {
	if c, err := r.Cookie(name); err == nil {
		return c.Value
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s + "..."
	}
	return s[:n] + "..."
}
