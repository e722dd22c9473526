// Package app wires the gateway's components together in one place.
package app

import (
	"fmt"

	"github.com/viobiscu/orion-ld-explorer/auth"
	"github.com/viobiscu/orion-ld-explorer/config"
	"github.com/viobiscu/orion-ld-explorer/keycloak"
	"github.com/viobiscu/orion-ld-explorer/middleware"
	"github.com/viobiscu/orion-ld-explorer/proxy"
	"github.com/viobiscu/orion-ld-explorer/session"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config   *config.Config
	Logger   *zap.Logger
	Sessions session.Store

	// Outbound clients
	Keycloak     *keycloak.Client
	Broker       *proxy.Forwarder
	DataProducts *proxy.Forwarder

	// Auth
	authHandler *auth.Handler
	CookieAuth  *middleware.CookieAuth
}

// AuthHandler returns the auth handler for route wiring (implements handlers.AuthDeps)
func (d *Dependencies) AuthHandler() *auth.Handler {
	return d.authHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initSessions(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	deps.initAuth(cfg)

	if err := deps.initProxies(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize proxies: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initSessions selects the session store: PostgreSQL when DATABASE_URL
// is set, otherwise in-memory. Memory sessions vanish on restart, which
// only costs users a re-login.
func (d *Dependencies) initSessions(cfg *config.Config) error {
	if cfg.Session.DatabaseURL == "" {
		d.Sessions = session.NewMemoryStore()
		d.Logger.Info("using in-memory session store")
		return nil
	}

	store, err := session.NewPostgresStore(cfg.Session.DatabaseURL, d.Logger)
	if err != nil {
		return err
	}
	d.Sessions = store
	d.Logger.Info("using postgres session store")
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	d.Keycloak = keycloak.NewClient(cfg.Keycloak, d.Logger)
	d.authHandler = auth.NewHandler(cfg, d.Keycloak, d.Sessions, d.Logger)
	d.CookieAuth = middleware.NewCookieAuth(d.Logger)
	d.Logger.Info("auth handler initialized",
		zap.String("client_id", cfg.Keycloak.ClientID))
}

// initProxies builds the two upstream forwarders with their per-route
// header policy.
func (d *Dependencies) initProxies(cfg *config.Config) error {
	broker, err := proxy.NewForwarder("NGSI-LD broker", cfg.Broker.URL, "/ngsi-ld/v1", cfg.Broker.Timeout, d.Logger,
		proxy.Options{
			TenantHeader: true,
			FilterTenant: cfg.Broker.AuthRequired,
		})
	if err != nil {
		return err
	}
	d.Broker = broker

	dataProducts, err := proxy.NewForwarder("Data Products API", cfg.DataProducts.URL, "/api/data-products", cfg.DataProducts.Timeout, d.Logger,
		proxy.Options{
			InjectBearer: true,
		})
	if err != nil {
		return err
	}
	d.DataProducts = dataProducts

	d.Logger.Info("upstream proxies initialized",
		zap.String("broker", cfg.Broker.URL),
		zap.String("data_products", cfg.DataProducts.URL))
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close() error {
	d.Logger.Info("shutting down dependencies")

	var errs []error
	if store, ok := d.Sessions.(*session.PostgresStore); ok {
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close session store: %w", err))
		}
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
