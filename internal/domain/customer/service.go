package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MissingFieldError indicates a required registration field was not provided.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// RegisterRequest holds the input for creating an account.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Address  string
	Phone    string
}

// Service implements account registration and credential verification.
type Service struct {
	customers Repository
	now       func() time.Time
}

// NewService creates a customer Service.
func NewService(customers Repository) *Service {
	return &Service{customers: customers, now: time.Now}
}

// Register creates a new customer with a bcrypt password hash. A duplicate
// email yields ErrEmailTaken.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Customer, error) {
	for _, f := range []struct{ name, value string }{
		{"name", req.Name},
		{"email", req.Email},
		{"password", req.Password},
		{"address", req.Address},
		{"phone", req.Phone},
	} {
		if f.value == "" {
			return nil, &MissingFieldError{Field: f.name}
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	now := s.now().UTC()
	c := &Customer{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		Address:      req.Address,
		Phone:        req.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.customers.Create(ctx, c); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create customer")
	}
	return c, nil
}

// Authenticate verifies an email/password pair and returns the account.
// Both unknown email and wrong password map to ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Customer, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	c, err := s.customers.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "get customer by email")
	}

	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return c, nil
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	return s.customers.GetByID(ctx, id)
}
