package keycloak

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viobiscu/orion-ld-explorer/config"
	"go.uber.org/zap"
	"net/url"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.KeycloakConfig{
		TokenURL:     serverURL + "/token",
		UserinfoURL:  serverURL + "/userinfo",
		LogoutURL:    serverURL + "/logout",
		ClientID:     "ContextBroker",
		ClientSecret: "s3cret",
	}, zap.NewNop())
}

func TestExchangeToken(t *testing.T) {
	t.Run("posts form with client credentials and parses token pair", func(t *testing.T) {
		var gotForm url.Values
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotForm = r.PostForm
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":300,"token_type":"Bearer"}`))
		}))
		defer srv.Close()

		pair, err := newTestClient(srv.URL).ExchangeToken(context.Background(), url.Values{
			"grant_type": {"authorization_code"},
			"code":       {"abc"},
		})
		require.NoError(t, err)
		assert.Equal(t, "at", pair.AccessToken)
		assert.Equal(t, "rt", pair.RefreshToken)
		assert.Equal(t, 300, pair.ExpiresIn)
		assert.Equal(t, "Bearer", pair.TokenType)

		assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
		assert.Equal(t, "abc", gotForm.Get("code"))
		assert.Equal(t, "ContextBroker", gotForm.Get("client_id"))
		assert.Equal(t, "s3cret", gotForm.Get("client_secret"))
	})

	t.Run("non-200 response becomes ProviderError with description", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid user credentials"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).ExchangeToken(context.Background(), url.Values{
			"grant_type": {"password"},
			"username":   {"alice"},
			"password":   {"wrong"},
		})
		require.Error(t, err)

		provErr, ok := err.(*ProviderError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, provErr.StatusCode)
		assert.Equal(t, "invalid_grant", provErr.ErrorCode)
		assert.Equal(t, "Invalid user credentials", provErr.Description("fallback"))
	})

	t.Run("non-JSON error body keeps raw body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream exploded"))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).ExchangeToken(context.Background(), url.Values{})
		require.Error(t, err)

		provErr, ok := err.(*ProviderError)
		require.True(t, ok)
		assert.Equal(t, "upstream exploded", provErr.Body)
		assert.Equal(t, "fallback", provErr.Description("fallback"))
	})

	t.Run("response without access token is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).ExchangeToken(context.Background(), url.Values{})
		assert.Error(t, err)
	})
}

func TestUserInfo(t *testing.T) {
	t.Run("sends bearer token and parses claims", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"preferred_username":"alice","email":"alice@example.com"}`))
		}))
		defer srv.Close()

		info, err := newTestClient(srv.URL).UserInfo(context.Background(), "at")
		require.NoError(t, err)
		assert.Equal(t, "alice", info["preferred_username"])
	})

	t.Run("non-200 response is a ProviderError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).UserInfo(context.Background(), "expired")
		require.Error(t, err)
		_, ok := err.(*ProviderError)
		assert.True(t, ok)
	})
}

func TestInvalidate(t *testing.T) {
	t.Run("posts refresh token to logout endpoint", func(t *testing.T) {
		var gotForm url.Values
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotForm = r.PostForm
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Invalidate(context.Background(), "rt")
		require.NoError(t, err)
		assert.Equal(t, "rt", gotForm.Get("refresh_token"))
		assert.Equal(t, "ContextBroker", gotForm.Get("client_id"))
	})

	t.Run("reports provider failure for logging", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Invalidate(context.Background(), "rt")
		assert.Error(t, err)
	})
}
