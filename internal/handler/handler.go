// Package handler exposes the marketplace over HTTP: public catalog reads,
// account endpoints, and JWT-protected order operations. Handlers decode
// requests, delegate to domain services, and map domain errors to statuses.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
	"github.com/craftbazaar/marketplace/internal/domain/customer"
	"github.com/craftbazaar/marketplace/internal/domain/order"
)

// Default page sizes. Catalog listings are larger than order history pages.
const (
	defaultCatalogPerPage = 20
	defaultOrdersPerPage  = 10
)

// Handler serves the public API.
type Handler struct {
	catalog   catalog.Repository
	orders    *order.Service
	customers *customer.Service
	tokens    *TokenManager
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cat catalog.Repository,
	orders *order.Service,
	customers *customer.Service,
	tokens *TokenManager,
) *Handler {
	return &Handler{
		catalog:   cat,
		orders:    orders,
		customers: customers,
		tokens:    tokens,
	}
}

// Routes builds the API router. Catalog and auth endpoints are public; order
// endpoints require a valid access token.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Post("/refresh", h.refresh)
			r.Post("/logout", h.logout)
		})

		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/partners", h.listPartners)
		r.Get("/partners/{id}", h.getPartner)
		r.Get("/partners/product/{id}", h.listOfferings)
		r.Get("/artisans", h.listArtisans)
		r.Get("/artisans/{id}", h.getArtisan)
		r.Get("/transparency/{id}", h.transparency)

		r.Route("/orders", func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}/status", h.updateOrderStatus)
		})
	})

	return r
}

type contextKey struct{ name string }

var customerIDKey = contextKey{"customer-id"}

// customerID returns the authenticated customer id set by requireAuth.
func customerID(ctx context.Context) string {
	id, _ := ctx.Value(customerIDKey).(string)
	return id
}

// requireAuth extracts the bearer token, verifies it, and stores the customer
// id in the request context. Missing or invalid tokens get 401.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			respondError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		id, err := h.tokens.VerifyAccess(raw)
		if err != nil {
			respondError(w, r, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), customerIDKey, id)))
	})
}
