package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
)

// Validation errors, checked in request order. The first failure wins and
// nothing is persisted.
var (
	ErrNoItems                = errors.New("order items are required")
	ErrMissingShippingAddress = errors.New("shipping address is required")
	ErrMissingPaymentMethod   = errors.New("payment method is required")
)

// ErrTrackingNotAllowed is returned when a tracking number is supplied on any
// transition other than Processing to Shipped. Once set it is immutable.
var ErrTrackingNotAllowed = errors.New("tracking number can only be attached when marking an order shipped")

// ErrUnauthorized indicates the acting identity does not own the resource.
// Distinct from ErrNotFound: the order exists but belongs to someone else.
var ErrUnauthorized = errors.New("not the owner of this order")

// InvalidItemError indicates a line item with missing references or a
// non-positive quantity.
type InvalidItemError struct {
	Index  int
	Reason string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid order item at index %d: %s", e.Index, e.Reason)
}

// ItemRequest is a single requested line: a product, the partner to buy it
// from, and how many.
type ItemRequest struct {
	ProductID string
	PartnerID string
	Quantity  int
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	Items           []ItemRequest
	ShippingAddress string
	PaymentMethod   string
	// IdempotencyKey, when non-empty, deduplicates retried submissions: a
	// repeated key returns the order created by the first call.
	IdempotencyKey string
}

// Authorize confirms the acting identity owns the resource. It is applied
// before any read or mutation of an order or a customer's order list.
func Authorize(actingID, ownerID string) error {
	if actingID != ownerID {
		return ErrUnauthorized
	}
	return nil
}

// Service assembles, persists, and serves orders.
type Service struct {
	pricer      *Pricer
	orders      Repository
	shippingFee decimal.Decimal
	now         func() time.Time
}

// NewService creates an order Service. shippingFee is the flat surcharge
// added to every order's total.
func NewService(pricer *Pricer, orders Repository, shippingFee decimal.Decimal) *Service {
	return &Service{
		pricer:      pricer,
		orders:      orders,
		shippingFee: shippingFee,
		now:         time.Now,
	}
}

// Create validates the request, prices every item, computes order totals, and
// persists the order atomically. Validation follows a fail-fast sequence;
// any pricing failure aborts the whole operation with nothing written.
func (s *Service) Create(ctx context.Context, customerID string, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	for i, item := range req.Items {
		switch {
		case item.ProductID == "":
			return nil, &InvalidItemError{Index: i, Reason: "product is required"}
		case item.PartnerID == "":
			return nil, &InvalidItemError{Index: i, Reason: "partner is required"}
		case item.Quantity <= 0:
			return nil, &InvalidItemError{Index: i, Reason: "quantity must be greater than 0"}
		}
	}
	if req.ShippingAddress == "" {
		return nil, ErrMissingShippingAddress
	}
	if req.PaymentMethod == "" {
		return nil, ErrMissingPaymentMethod
	}

	// A retried submission with the same key returns the original order
	// instead of creating a duplicate.
	if req.IdempotencyKey != "" {
		existing, err := s.orders.FindByIdempotencyKey(ctx, customerID, req.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "idempotency lookup")
		}
	}

	now := s.now().UTC()
	orderID := uuid.New().String()

	items := make([]Item, len(req.Items))
	total := decimal.Zero
	fee := decimal.Zero
	for i, item := range req.Items {
		quote, err := s.pricer.Price(ctx, item.ProductID, item.PartnerID, item.Quantity)
		if err != nil {
			return nil, err
		}

		items[i] = Item{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			PartnerID: item.PartnerID,
			Quantity:  item.Quantity,
			Price:     quote.UnitPrice,
			Subtotal:  quote.Subtotal,
			CreatedAt: now,
		}
		total = total.Add(quote.Subtotal)
		fee = fee.Add(quote.Commission)
	}

	// Flat shipping surcharge, then a single half-up rounding of each total.
	// Per-item values stay exact so summation order cannot change the result.
	total = total.Add(s.shippingFee).Round(2)
	fee = fee.Round(2)

	o := &Order{
		ID:              orderID,
		CustomerID:      customerID,
		OrderDate:       now,
		Items:           items,
		TotalAmount:     total,
		PlatformFee:     fee,
		Status:          StatusProcessing,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  req.IdempotencyKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		// Two concurrent submissions with the same key can both miss the
		// lookup above; the loser finds the winner's order here.
		if errors.Is(err, ErrDuplicateKey) && req.IdempotencyKey != "" {
			existing, lookupErr := s.orders.FindByIdempotencyKey(ctx, customerID, req.IdempotencyKey)
			if lookupErr != nil {
				return nil, errors.Wrap(lookupErr, "idempotency lookup after conflict")
			}
			return existing, nil
		}
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// Get returns the order with the given id if the acting identity owns it.
// Absence yields ErrNotFound; a foreign order yields ErrUnauthorized.
func (s *Service) Get(ctx context.Context, actingID, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actingID, o.CustomerID); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByCustomer returns one page of the customer's orders, newest first,
// with the total count. Only the customer may list their own orders.
func (s *Service) ListByCustomer(ctx context.Context, actingID, customerID string, page catalog.Page) ([]Order, int, error) {
	if err := Authorize(actingID, customerID); err != nil {
		return nil, 0, err
	}
	return s.orders.ListByCustomer(ctx, customerID, page)
}

// UpdateStatus transitions an owned order to the next status. A tracking
// number may only be attached on the Processing to Shipped transition.
func (s *Service) UpdateStatus(ctx context.Context, actingID, orderID string, next Status, trackingNumber string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actingID, o.CustomerID); err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}
	if trackingNumber != "" && next != StatusShipped {
		return nil, ErrTrackingNotAllowed
	}

	now := s.now().UTC()
	if err := s.orders.UpdateStatus(ctx, orderID, o.Status, next, trackingNumber, now); err != nil {
		return nil, err
	}

	o.Status = next
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	o.UpdatedAt = now
	return o, nil
}
