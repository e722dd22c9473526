// Package routes configures the HTTP router for the gateway.
package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/viobiscu/orion-ld-explorer/app"
	"github.com/viobiscu/orion-ld-explorer/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware. Credentials must be allowed so the browser sends
	// the auth cookies on same-site API calls.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "NGSILD-Tenant"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", handlers.HealthCheck())

	// OAuth2 auth endpoints (Keycloak)
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/login", handlers.AuthLoginHandler(deps))
		r.Get("/callback", handlers.AuthCallbackHandler(deps))
		r.Get("/refresh", handlers.AuthRefreshHandler(deps))
		r.Get("/logout", handlers.AuthLogoutHandler(deps))
		r.Get("/user", handlers.AuthUserInfoHandler(deps))
		r.Get("/token-details", handlers.AuthTokenDetailsHandler(deps))
		r.Get("/retrieve-token", handlers.AuthRetrieveTokenHandler(deps))
		r.Post("/tenant", handlers.AuthSetTenantHandler(deps))
		r.Post("/verify-token", handlers.AuthVerifyTokenHandler(deps))
		r.Post("/direct-token", handlers.AuthDirectTokenHandler(deps))
	})

	// NGSI-LD broker proxy, gated on the auth cookie unless the gateway
	// runs in pass-through mode.
	broker := http.Handler(deps.Broker)
	if deps.Config.Broker.AuthRequired {
		broker = deps.CookieAuth.RequireToken(broker)
	}
	r.Handle("/api/ngsi-ld/v1/*", broker)

	// Data Products API proxy: catalog reads are public, writes need auth.
	dataProducts := deps.CookieAuth.RequireTokenExceptGet(deps.DataProducts)
	r.Handle("/api/data-products", dataProducts)
	r.Handle("/api/data-products/*", dataProducts)

	// Frontend static assets
	r.Handle("/*", http.FileServer(http.Dir(deps.Config.Server.StaticDir)))

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
