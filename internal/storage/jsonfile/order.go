package jsonfile

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
	"github.com/craftbazaar/marketplace/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository over the store file.
type OrderRepository struct {
	store *Store
}

// Orders returns the order view of the store.
func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{store: s}
}

// Create appends the order and rewrites the store file. The in-memory
// document is only updated after a successful write, so a persistence failure
// leaves no partial order behind.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	prev := r.store.doc.Orders
	r.store.doc.Orders = append(slices.Clone(prev), encodeOrder(o))
	if err := r.store.persist(); err != nil {
		r.store.doc.Orders = prev
		return err
	}
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for i := range r.store.doc.Orders {
		if r.store.doc.Orders[i].ID == id {
			o := decodeOrder(r.store.doc.Orders[i])
			return &o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *OrderRepository) FindByIdempotencyKey(_ context.Context, customerID, key string) (*order.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for i := range r.store.doc.Orders {
		od := &r.store.doc.Orders[i]
		if od.CustomerID == customerID && od.IdempotencyKey == key {
			o := decodeOrder(*od)
			return &o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *OrderRepository) ListByCustomer(_ context.Context, customerID string, page catalog.Page) ([]order.Order, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var all []order.Order
	for i := range r.store.doc.Orders {
		if r.store.doc.Orders[i].CustomerID == customerID {
			all = append(all, decodeOrder(r.store.doc.Orders[i]))
		}
	}
	slices.SortFunc(all, func(a, b order.Order) int {
		if c := b.OrderDate.Compare(a.OrderDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return paginate(all, page), len(all), nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id string, from, to order.Status, trackingNumber string, updatedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := range r.store.doc.Orders {
		od := &r.store.doc.Orders[i]
		if od.ID != id {
			continue
		}
		if od.Status != string(from) {
			return order.ErrStatusConflict
		}
		prev := *od
		od.Status = string(to)
		if trackingNumber != "" {
			od.TrackingNumber = trackingNumber
		}
		od.UpdatedAt = updatedAt
		if err := r.store.persist(); err != nil {
			*od = prev
			return err
		}
		return nil
	}
	return order.ErrNotFound
}

func encodeOrder(o *order.Order) orderDoc {
	od := orderDoc{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		OrderDate:       o.OrderDate,
		TotalAmount:     o.TotalAmount,
		PlatformFee:     o.PlatformFee,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		TrackingNumber:  o.TrackingNumber,
		IdempotencyKey:  o.IdempotencyKey,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	od.Items = make([]orderItemDoc, len(o.Items))
	for i, it := range o.Items {
		od.Items[i] = orderItemDoc{
			ID:        it.ID,
			ProductID: it.ProductID,
			PartnerID: it.PartnerID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Subtotal:  it.Subtotal,
			CreatedAt: it.CreatedAt,
		}
	}
	return od
}

func decodeOrder(od orderDoc) order.Order {
	o := order.Order{
		ID:              od.ID,
		CustomerID:      od.CustomerID,
		OrderDate:       od.OrderDate,
		TotalAmount:     od.TotalAmount,
		PlatformFee:     od.PlatformFee,
		Status:          order.Status(od.Status),
		ShippingAddress: od.ShippingAddress,
		PaymentMethod:   od.PaymentMethod,
		TrackingNumber:  od.TrackingNumber,
		IdempotencyKey:  od.IdempotencyKey,
		CreatedAt:       od.CreatedAt,
		UpdatedAt:       od.UpdatedAt,
	}
	o.Items = make([]order.Item, len(od.Items))
	for i, it := range od.Items {
		o.Items[i] = order.Item{
			ID:        it.ID,
			OrderID:   od.ID,
			ProductID: it.ProductID,
			PartnerID: it.PartnerID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Subtotal:  it.Subtotal,
			CreatedAt: it.CreatedAt,
		}
	}
	return o
}
