package jsonfile

import (
	"context"
	"slices"

	"github.com/craftbazaar/marketplace/internal/domain/customer"
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository over the store file.
type CustomerRepository struct {
	store *Store
}

// Customers returns the customer view of the store.
func (s *Store) Customers() *CustomerRepository {
	return &CustomerRepository{store: s}
}

func (r *CustomerRepository) Create(_ context.Context, c *customer.Customer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := range r.store.doc.Customers {
		if r.store.doc.Customers[i].Email == c.Email {
			return customer.ErrEmailTaken
		}
	}
	prev := r.store.doc.Customers
	r.store.doc.Customers = append(slices.Clone(prev), customerDoc{
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Address:      c.Address,
		Phone:        c.Phone,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	})
	if err := r.store.persist(); err != nil {
		r.store.doc.Customers = prev
		return err
	}
	return nil
}

func (r *CustomerRepository) GetByID(_ context.Context, id string) (*customer.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for i := range r.store.doc.Customers {
		if r.store.doc.Customers[i].ID == id {
			c := decodeCustomer(r.store.doc.Customers[i])
			return &c, nil
		}
	}
	return nil, customer.ErrNotFound
}

func (r *CustomerRepository) GetByEmail(_ context.Context, email string) (*customer.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for i := range r.store.doc.Customers {
		if r.store.doc.Customers[i].Email == email {
			c := decodeCustomer(r.store.doc.Customers[i])
			return &c, nil
		}
	}
	return nil, customer.ErrNotFound
}

func decodeCustomer(cd customerDoc) customer.Customer {
	return customer.Customer{
		ID:           cd.ID,
		Name:         cd.Name,
		Email:        cd.Email,
		PasswordHash: cd.PasswordHash,
		Address:      cd.Address,
		Phone:        cd.Phone,
		CreatedAt:    cd.CreatedAt,
		UpdatedAt:    cd.UpdatedAt,
	}
}
