package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftbazaar/marketplace/internal/domain/customer"
)

const (
	insertCustomerSQL = `INSERT INTO customers (customer_id, name, email, password_hash, address, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	customerColumns = `customer_id, name, email, password_hash, address, phone, created_at, updated_at`

	getCustomerSQL = `SELECT ` + customerColumns + ` FROM customers WHERE customer_id = $1`

	getCustomerByEmailSQL = `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`
)

// uniqueViolation is the PostgreSQL error code for a unique constraint breach.
const uniqueViolation = "23505"

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Create persists a new customer. A duplicate email maps to
// customer.ErrEmailTaken via the unique index on customers.email.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	_, err := r.pool.Exec(ctx, insertCustomerSQL,
		c.ID, c.Name, c.Email, c.PasswordHash, c.Address, c.Phone, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return customer.ErrEmailTaken
		}
		return errors.Wrap(err, "insert customer")
	}
	return nil
}

// GetByID returns the customer, or customer.ErrNotFound.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	return r.queryCustomer(ctx, getCustomerSQL, id)
}

// GetByEmail returns the customer registered under email, or
// customer.ErrNotFound. Callers are expected to lowercase the email.
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	return r.queryCustomer(ctx, getCustomerByEmailSQL, email)
}

func (r *CustomerRepository) queryCustomer(ctx context.Context, sql string, args ...any) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query customer")
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan customer")
	}
	return &c, nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.Address, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
