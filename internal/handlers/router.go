package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/caphehouse/api/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	cart      RouteRegistrar
	checkout  RouteRegistrar
	addresses RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix = "/api/v1"
	defaultTimeout   = 60 * time.Second
)

// WithCartRoutes mounts the cart endpoints under /cart.
func WithCartRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.cart = registrar
	}
}

// WithCheckoutRoutes mounts the checkout endpoints under /checkout.
func WithCheckoutRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.checkout = registrar
	}
}

// WithAddressRoutes mounts the address search endpoints under /addresses.
func WithAddressRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.addresses = registrar
	}
}

// WithHealthHandlers overrides the default health handlers.
func WithHealthHandlers(health *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = health
	}
}

// WithMiddleware appends extra middleware after the defaults.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// NewRouter constructs the chi router with shared middleware and the route groups.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers(nil)
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		mount := func(path string, registrar RouteRegistrar) {
			api.Route(path, func(group chi.Router) {
				if registrar != nil {
					registrar(group)
					return
				}
				group.HandleFunc("/*", func(w http.ResponseWriter, req *http.Request) {
					httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s endpoints are not wired", path), http.StatusNotImplemented))
				})
			})
		}

		mount("/cart", cfg.cart)
		mount("/checkout", cfg.checkout)
		mount("/addresses", cfg.addresses)
	})

	return r
}
