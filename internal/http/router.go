package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/josko3567/oby-server/internal/api"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Catalog        CatalogService
	Orders         OrderService
	Health         HealthChecker
	RequestTimeout time.Duration
	AllowedOrigins []string
	// AccessLog turns on chi's request logger.
	AccessLog bool
}

// NewRouter wires the JSON API. Table pages are served from another origin,
// so every route answers CORS preflights.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	catalogHandler := NewCatalogHandler(cfg.Catalog, cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(cfg.Orders, cfg.RequestTimeout)

	r := chi.NewRouter()

	if cfg.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Health.Ping(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, api.HealthResponse{Status: "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
	})

	r.Route("/offers", func(r chi.Router) {
		r.Get("/", catalogHandler.ListOffers)
		r.Post("/", catalogHandler.UpsertOffer)
		r.Get("/{name}", catalogHandler.GetOffer)
		r.Delete("/{name}", catalogHandler.DeleteOffer)
	})

	r.Route("/tables", func(r chi.Router) {
		r.Get("/", catalogHandler.ListTables)
		r.Post("/", catalogHandler.UpsertTable)
		r.Get("/{name}", catalogHandler.GetTable)
		r.Delete("/{name}", catalogHandler.DeleteTable)
	})

	r.Get("/offers-tables", catalogHandler.OffersTables)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", ordersHandler.ListOrders)
		r.Post("/", ordersHandler.PlaceOrder)
		r.Get("/{table}/{count}", ordersHandler.GetOrder)
		r.Delete("/{table}/{count}", ordersHandler.DeleteOrder)
		r.Post("/{table}/{count}/finish", ordersHandler.FinishOrder)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	})

	return otelhttp.NewHandler(c.Handler(r), "oby-server")
}
