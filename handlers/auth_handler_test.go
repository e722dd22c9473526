package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viobiscu/orion-ld-explorer/auth"
)

type nilAuthDeps struct{}

func (nilAuthDeps) AuthHandler() *auth.Handler { return nil }

func TestAuthHandlersWithoutConfiguredAuth(t *testing.T) {
	endpoints := map[string]http.HandlerFunc{
		"login":          AuthLoginHandler(nilAuthDeps{}),
		"callback":       AuthCallbackHandler(nilAuthDeps{}),
		"refresh":        AuthRefreshHandler(nilAuthDeps{}),
		"logout":         AuthLogoutHandler(nilAuthDeps{}),
		"user":           AuthUserInfoHandler(nilAuthDeps{}),
		"tenant":         AuthSetTenantHandler(nilAuthDeps{}),
		"verify-token":   AuthVerifyTokenHandler(nilAuthDeps{}),
		"direct-token":   AuthDirectTokenHandler(nilAuthDeps{}),
		"token-details":  AuthTokenDetailsHandler(nilAuthDeps{}),
		"retrieve-token": AuthRetrieveTokenHandler(nilAuthDeps{}),
	}

	for name, handler := range endpoints {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/"+name, nil)
			rec := httptest.NewRecorder()
			handler(rec, req)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"error":"Authentication not configured"}`, rec.Body.String())
		})
	}
}
