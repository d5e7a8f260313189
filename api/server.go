/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. zap logger: Structured request log with status and duration
  4. Metrics:    Prometheus counter + latency histogram
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/products/*   Catalog, repricing, deletion, per-product reads
  /api/suppliers/*  Supplier management
  /api/links/*      Product-supplier link lifecycle
  /api/purchases    Record a purchase
  /api/sales        Record a sale
  /api/transfers    Rebook stock between suppliers
  /api/transactions Ledger queries
  /api/integrity    Stock-vs-ledger audit
  /metrics          Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. Mutation actor identity comes from the
  X-Actor header and is trusted as given.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *zap.Logger, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor"},
		AllowCredentials: true,
	}))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Product routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/low-stock", h.ListLowStock)
			r.Get("/{id}", h.GetProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
			r.Put("/{id}/state", h.SetProductState)
			r.Put("/{id}/price", h.UpdatePrice)
			r.Get("/{id}/suppliers", h.ListProductSuppliers)
			r.Post("/{id}/suppliers", h.LinkSupplier)
			r.Get("/{id}/summary", h.GetProductSummary)
			r.Get("/{id}/integrity", h.CheckProductIntegrity)
		})

		// Supplier routes
		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.ListSuppliers)
			r.Post("/", h.CreateSupplier)
			r.Get("/{id}", h.GetSupplier)
			r.Put("/{id}", h.UpdateSupplier)
			r.Put("/{id}/state", h.SetSupplierState)
			r.Get("/{id}/products", h.ListSupplierProducts)
		})

		// Link lifecycle routes
		r.Route("/links", func(r chi.Router) {
			r.Put("/{id}/state", h.SetLinkState)
			r.Delete("/{id}", h.DeleteLink)
		})

		// Ledger operations
		r.Post("/purchases", h.RecordPurchase)
		r.Post("/sales", h.RecordSale)
		r.Post("/transfers", h.Transfer)

		// Reporting reads
		r.Get("/transactions", h.ListTransactions)
		r.Get("/price-changes", h.ListPriceChanges)
		r.Get("/integrity", h.CheckIntegrity)
	})

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
