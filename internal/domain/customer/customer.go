// Package customer handles marketplace customer accounts: registration,
// credential checks, and lookups. Token minting lives in the HTTP layer.
package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a customer id or email does not exist.
	ErrNotFound = errors.New("customer not found")
	// ErrEmailTaken is returned on registration with an already used email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed login. It deliberately
	// does not reveal whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Customer is a registered marketplace account.
type Customer struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Address      string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository defines persistence operations for customers.
type Repository interface {
	// Create persists a new customer. Returns ErrEmailTaken when the email
	// is already registered.
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id string) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
}
