// Package order implements the order-creation and revenue-split workflow:
// request validation, per-item pricing against partner offerings, platform
// fee computation, atomic persistence, and ownership-scoped access.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// ErrUnknownStatus is returned by ParseStatus for unrecognized values.
var ErrUnknownStatus = errors.New("unknown order status")

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
}

// transitions is the forward-only status machine. Cancelled is terminal and
// reachable only from Processing.
var transitions = map[Status]Status{
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// CanTransitionTo reports whether s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	if s == StatusProcessing && next == StatusCancelled {
		return true
	}
	return transitions[s] == next
}

// InvalidTransitionError indicates a status update that the state machine
// forbids, e.g. Delivered back to Processing.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Order is an order header together with its line items. It is owned
// exclusively by the creating customer.
type Order struct {
	ID              string
	CustomerID      string
	OrderDate       time.Time
	Items           []Item
	TotalAmount     decimal.Decimal
	PlatformFee     decimal.Decimal
	Status          Status
	ShippingAddress string
	PaymentMethod   string
	TrackingNumber  string
	IdempotencyKey  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is a single order line. Price is the unit price snapshotted from the
// offering at order time; later offering changes never affect it.
type Item struct {
	ID        string
	OrderID   string
	ProductID string
	PartnerID string
	Quantity  int
	Price     decimal.Decimal
	Subtotal  decimal.Decimal
	CreatedAt time.Time
}

// Persistence errors.
var (
	// ErrNotFound is returned when an order id does not exist. It is never
	// conflated with authorization failures.
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict is returned when a status update loses a race: the
	// order's current status no longer matches what the caller observed.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrDuplicateKey is returned by Create when a concurrent submission with
	// the same idempotency key committed first. Callers re-read by key.
	ErrDuplicateKey = errors.New("idempotency key already used")
)

// Repository defines persistence operations for orders. Create must write the
// header and all items as one atomic unit: a failure after the header is
// written must leave no order visible to readers.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// FindByIdempotencyKey returns the customer's order previously created
	// with the given key, or ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, customerID, key string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string, page catalog.Page) ([]Order, int, error)
	// UpdateStatus moves the order from the expected current status to next,
	// optionally attaching a tracking number. Implementations must guard on
	// the expected status and return ErrStatusConflict when it no longer
	// holds.
	UpdateStatus(ctx context.Context, id string, from, to Status, trackingNumber string, updatedAt time.Time) error
}
