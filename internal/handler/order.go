package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/craftbazaar/marketplace/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	PartnerID string `json:"partner_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	ShippingAddress string             `json:"shipping_address"`
	PaymentMethod   string             `json:"payment_method"`
	IdempotencyKey  string             `json:"idempotency_key,omitempty"`
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

type orderItemResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	PartnerID string          `json:"partner_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	CustomerID      string              `json:"customer_id"`
	OrderDate       time.Time           `json:"order_date"`
	Items           []orderItemResponse `json:"items"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	PlatformFee     decimal.Decimal     `json:"platform_fee"`
	Status          string              `json:"status"`
	ShippingAddress string              `json:"shipping_address"`
	PaymentMethod   string              `json:"payment_method"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{
			ProductID: it.ProductID,
			PartnerID: it.PartnerID,
			Quantity:  it.Quantity,
		}
	}

	o, err := h.orders.Create(r.Context(), customerID(r.Context()), order.CreateRequest{
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), customerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	id := customerID(r.Context())
	page := pageFrom(r, defaultOrdersPerPage)

	orders, total, err := h.orders.ListByCustomer(r.Context(), id, id, page)
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, r, http.StatusOK, newPageEnvelope(page, total, out))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	next, err := order.ParseStatus(req.Status)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), customerID(r.Context()), chi.URLParam(r, "id"), next, req.TrackingNumber)
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// respondOrderError maps order domain errors to HTTP statuses: validation and
// unavailable offerings are 400, absence is 404, foreign ownership is 403,
// lost status races are 409, everything else is a 500.
func (h *Handler) respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidItem       *order.InvalidItemError
		unavailable       *order.OfferingUnavailableError
		invalidQuantity   *order.InvalidQuantityError
		invalidTransition *order.InvalidTransitionError
	)
	switch {
	case errors.Is(err, order.ErrNoItems),
		errors.Is(err, order.ErrMissingShippingAddress),
		errors.Is(err, order.ErrMissingPaymentMethod),
		errors.Is(err, order.ErrTrackingNotAllowed),
		errors.As(err, &invalidItem),
		errors.As(err, &unavailable),
		errors.As(err, &invalidQuantity),
		errors.As(err, &invalidTransition):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrUnauthorized):
		respondError(w, r, http.StatusForbidden, "not your order")
	case errors.Is(err, order.ErrStatusConflict):
		respondError(w, r, http.StatusConflict, "order status changed, retry")
	default:
		zctx.From(r.Context()).Error("order operation", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			PartnerID: it.PartnerID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Subtotal:  it.Subtotal,
		}
	}
	return orderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		OrderDate:       o.OrderDate,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		PlatformFee:     o.PlatformFee,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		TrackingNumber:  o.TrackingNumber,
	}
}
