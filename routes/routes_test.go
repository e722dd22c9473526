package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viobiscu/orion-ld-explorer/app"
	"github.com/viobiscu/orion-ld-explorer/config"
	"go.uber.org/zap"
)

func newRouter(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Keycloak: config.KeycloakConfig{
			AuthURL:  "https://idp.example.com/auth",
			TokenURL: "https://idp.example.com/token",
			ClientID: "ContextBroker",
		},
		Broker:       config.BrokerConfig{URL: "http://orion:1026", AuthRequired: true},
		DataProducts: config.DataProductsConfig{URL: "http://data-products:8000"},
		CORS:         config.CORSConfig{Origins: []string{"*"}},
	}
	if mutate != nil {
		mutate(cfg)
	}
	deps, err := app.NewDependencies(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })
	return SetupRoutes(deps)
}

func TestHealthRoute(t *testing.T) {
	router := newRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.0.0"}`, rec.Body.String())
}

func TestLoginRoute(t *testing.T) {
	router := newRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "https://idp.example.com/auth")
}

func TestBrokerRouteGate(t *testing.T) {
	t.Run("rejects anonymous broker requests", func(t *testing.T) {
		router := newRouter(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/ngsi-ld/v1/entities", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized access. Please log in first."}`, rec.Body.String())
	})

	t.Run("pass-through mode forwards anonymous requests", func(t *testing.T) {
		var upstreamPath string
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			upstreamPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[]`))
		}))
		defer upstream.Close()

		router := newRouter(t, func(cfg *config.Config) {
			cfg.Broker.URL = upstream.URL
			cfg.Broker.AuthRequired = false
		})
		req := httptest.NewRequest(http.MethodGet, "/api/ngsi-ld/v1/entities", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
		assert.Equal(t, "/ngsi-ld/v1/entities", upstreamPath)
	})
}

func TestDataProductsRoute(t *testing.T) {
	t.Run("anonymous reads reach the upstream", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"products":[]}`))
		}))
		defer upstream.Close()

		router := newRouter(t, func(cfg *config.Config) {
			cfg.DataProducts.URL = upstream.URL
		})
		req := httptest.NewRequest(http.MethodGet, "/api/data-products", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("anonymous writes are rejected", func(t *testing.T) {
		router := newRouter(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/data-products/catalog", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestStaticRoute(t *testing.T) {
	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html></html>"), 0o644))

	router := newRouter(t, func(cfg *config.Config) {
		cfg.Server.StaticDir = staticDir
	})

	// FileServer serves index.html for the directory request and
	// redirects explicit /index.html paths back to it.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html></html>", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "./", rec.Header().Get("Location"))
}
