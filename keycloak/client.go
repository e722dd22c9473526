// Package keycloak is the outbound client for the identity provider's
// OpenID Connect endpoints. It is pure request/response: one call per
// invocation, no retries, no state.
package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/viobiscu/orion-ld-explorer/config"
	"go.uber.org/zap"
)

// TokenPair represents the token endpoint response
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// ProviderError carries the status and body of a failed token endpoint
// call so handlers can translate it for the browser.
type ProviderError struct {
	StatusCode       int
	Body             string
	ErrorCode        string
	ErrorDescription string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.ErrorDescription != "" {
		return fmt.Sprintf("identity provider returned %d: %s", e.StatusCode, e.ErrorDescription)
	}
	return fmt.Sprintf("identity provider returned %d: %s", e.StatusCode, e.Body)
}

// Description returns the provider's human-readable failure reason,
// falling back to the given default.
func (e *ProviderError) Description(fallback string) string {
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	return fallback
}

// Client makes outbound calls to the Keycloak token, userinfo, and
// logout endpoints with a fixed client identifier.
type Client struct {
	cfg        config.KeycloakConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new identity provider client
func NewClient(cfg config.KeycloakConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// ExchangeToken posts the given grant parameters to the token endpoint.
// The client id and secret are always added. A non-200 response becomes
// a *ProviderError carrying the provider's status and body.
func (c *Client) ExchangeToken(ctx context.Context, params url.Values) (*TokenPair, error) {
	data := url.Values{}
	for key, values := range params {
		for _, v := range values {
			data.Add(key, v)
		}
	}
	data.Set("client_id", c.cfg.ClientID)
	if c.cfg.ClientSecret != "" {
		data.Set("client_secret", c.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		provErr := &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
		var errBody struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			provErr.ErrorCode = errBody.Error
			provErr.ErrorDescription = errBody.ErrorDescription
		}
		return nil, provErr
	}

	var pair TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("no access_token in response")
	}

	return &pair, nil
}

// UserInfo calls the userinfo endpoint with the given access token and
// returns the provider's claim set.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read userinfo response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var info map[string]interface{}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse userinfo response: %w", err)
	}
	return info, nil
}

// Invalidate revokes a refresh token at the logout endpoint. Failures
// are returned for logging only; logout flows never block on them.
func (c *Client) Invalidate(ctx context.Context, refreshToken string) error {
	data := url.Values{
		"client_id":     {c.cfg.ClientID},
		"refresh_token": {refreshToken},
	}
	if c.cfg.ClientSecret != "" {
		data.Set("client_secret", c.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LogoutURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("create logout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("logout request returned %d", resp.StatusCode)
	}
	return nil
}
