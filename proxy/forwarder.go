// Package proxy forwards API requests to the NGSI-LD context broker and
// the Data Products API, applying the gateway's header and CORS policy.
package proxy

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/viobiscu/orion-ld-explorer/utils"
	"go.uber.org/zap"
)

const (
	tenantHeader   = "NGSILD-Tenant"
	allowedMethods = "GET, POST, PUT, DELETE, PATCH, OPTIONS"
)

// isPlaceholderTenant reports whether the frontend sent a value that
// means "no real tenant": empty, any casing of "default", or the exact
// reserved tenant "Synchro". Forwarding them would select a wrong (or
// non-existent) broker tenant. Only "default" matches case-insensitively;
// "Synchro" is an exact match, so "SYNCHRO" is a real tenant.
func isPlaceholderTenant(tenant string) bool {
	return tenant == "" ||
		strings.EqualFold(tenant, "default") ||
		tenant == "Synchro"
}

// responseHeaderAllowlist is the set of upstream headers passed back to
// the browser. Everything else (hop-by-hop headers, upstream cookies,
// upstream CORS decisions) is dropped.
var responseHeaderAllowlist = map[string]bool{
	"content-type":   true,
	"content-length": true,
	"cache-control":  true,
	"etag":           true,
	"last-modified":  true,
}

// Options selects the per-route header policy.
type Options struct {
	// TenantHeader advertises and forwards NGSILD-Tenant on this route.
	TenantHeader bool
	// FilterTenant drops placeholder tenant values instead of forwarding
	// them. Off in pass-through mode, where headers travel untouched.
	FilterTenant bool
	// InjectBearer promotes the access-token cookie to an Authorization
	// header when the client did not send one.
	InjectBearer bool
}

// Forwarder relays a request subtree to one upstream service.
type Forwarder struct {
	name     string
	target   *url.URL
	basePath string
	client   *http.Client
	logger   *zap.Logger
	opts     Options
}

// NewForwarder creates a forwarder for the given upstream base URL.
// basePath is the fixed upstream path prefix joined before the matched
// wildcard suffix ("/ngsi-ld/v1", "/api/data-products"); the name
// appears in client-facing error messages ("NGSI-LD broker",
// "Data Products API").
func NewForwarder(name, targetURL, basePath string, timeout time.Duration, logger *zap.Logger, opts Options) (*Forwarder, error) {
	target, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s URL %q: %w", name, targetURL, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid %s URL %q: missing scheme or host", name, targetURL)
	}
	if trimmed := strings.Trim(basePath, "/"); trimmed != "" {
		basePath = "/" + trimmed
	} else {
		basePath = ""
	}
	return &Forwarder{
		name:     name,
		target:   target,
		basePath: basePath,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		opts:     opts,
	}, nil
}

// ServeHTTP implements http.Handler. The wildcard suffix of the matched
// route is appended to the upstream base path.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		f.writePreflight(w)
		return
	}

	outReq, err := f.buildRequest(r)
	if err != nil {
		f.logger.Error("failed to build upstream request", zap.Error(err))
		_ = utils.WriteUpstreamError(w, http.StatusInternalServerError,
			fmt.Sprintf("Error communicating with the %s", f.name), err.Error())
		return
	}

	resp, err := f.client.Do(outReq)
	if err != nil {
		f.logger.Error("upstream request failed",
			zap.String("upstream", f.name),
			zap.String("url", outReq.URL.String()),
			zap.Error(err))
		if isConnectionRefused(err) {
			_ = utils.WriteUpstreamError(w, http.StatusServiceUnavailable,
				fmt.Sprintf("Unable to connect to the %s. The service may be unavailable.", f.name), err.Error())
			return
		}
		_ = utils.WriteUpstreamError(w, http.StatusInternalServerError,
			fmt.Sprintf("Error communicating with the %s", f.name), err.Error())
		return
	}
	defer resp.Body.Close()

	f.logger.Debug("proxied request",
		zap.String("upstream", f.name),
		zap.String("method", r.Method),
		zap.String("path", outReq.URL.Path),
		zap.Int("status", resp.StatusCode))

	copyAllowedHeaders(w.Header(), resp.Header)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", f.allowHeaders())
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		f.logger.Warn("failed to stream upstream response", zap.Error(err))
	}
}

// buildRequest constructs the outbound request: upstream URL from the
// wildcard suffix, filtered headers, original body and query string.
func (f *Forwarder) buildRequest(r *http.Request) (*http.Request, error) {
	outURL := f.upstreamURL(r)
	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, outURL, r.Body)
	if err != nil {
		return nil, err
	}

	outReq.Header.Set("Content-Type", headerOrDefault(r, "Content-Type", "application/json"))
	outReq.Header.Set("Accept", headerOrDefault(r, "Accept", "application/json"))

	if auth := r.Header.Get("Authorization"); auth != "" {
		outReq.Header.Set("Authorization", auth)
	} else if f.opts.InjectBearer {
		if c, err := r.Cookie("access_token"); err == nil && c.Value != "" {
			outReq.Header.Set("Authorization", "Bearer "+c.Value)
		}
	}

	if f.opts.TenantHeader {
		if tenant := r.Header.Get(tenantHeader); tenant != "" {
			if !f.opts.FilterTenant || !isPlaceholderTenant(tenant) {
				outReq.Header.Set(tenantHeader, tenant)
			}
		}
	}

	return outReq, nil
}

// upstreamURL joins the upstream base URL, the fixed base path, and the
// matched wildcard suffix, and carries the query string over verbatim.
func (f *Forwarder) upstreamURL(r *http.Request) string {
	suffix := chi.URLParam(r, "*")

	out := strings.TrimRight(f.target.String(), "/") + f.basePath
	if suffix != "" {
		out += "/" + suffix
	}
	if r.URL.RawQuery != "" {
		out += "?" + r.URL.RawQuery
	}
	return out
}

// writePreflight answers CORS preflight locally; preflights never reach
// the upstream.
func (f *Forwarder) writePreflight(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
	w.Header().Set("Access-Control-Allow-Headers", f.allowHeaders())
	w.WriteHeader(http.StatusOK)
}

// allowHeaders is the CORS allow-headers set for this route, sent on
// preflights and re-added on every proxied response.
func (f *Forwarder) allowHeaders() string {
	if f.opts.TenantHeader {
		return "Content-Type, Authorization, " + tenantHeader
	}
	return "Content-Type, Authorization"
}

func copyAllowedHeaders(dst, src http.Header) {
	for name, values := range src {
		if !responseHeaderAllowlist[strings.ToLower(name)] {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

func headerOrDefault(r *http.Request, name, fallback string) string {
	if v := r.Header.Get(name); v != "" {
		return v
	}
	return fallback
}

func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		strings.Contains(err.Error(), "connection refused")
}
