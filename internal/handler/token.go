package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the custom claim. Refresh tokens are only accepted
// by the refresh endpoint, access tokens everywhere else.
const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// ErrInvalidToken covers expired, malformed, mis-signed and wrong-kind
// tokens. Handlers map it to 401.
var ErrInvalidToken = errors.New("invalid token")

type tokenClaims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

// TokenPair is the response of register, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenManager mints and verifies HS256 JWTs carrying the customer id as the
// subject.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a TokenManager signing with secret.
func NewTokenManager(secret []byte, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue mints an access/refresh pair for the customer.
func (m *TokenManager) Issue(customerID string) (TokenPair, error) {
	access, err := m.sign(customerID, tokenAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(customerID, tokenRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess mints a fresh access token, used by the refresh endpoint.
func (m *TokenManager) IssueAccess(customerID string) (string, error) {
	return m.sign(customerID, tokenAccess, m.accessTTL)
}

func (m *TokenManager) sign(customerID, kind string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return raw, nil
}

// VerifyAccess validates an access token and returns the customer id.
func (m *TokenManager) VerifyAccess(raw string) (string, error) {
	return m.verify(raw, tokenAccess)
}

// VerifyRefresh validates a refresh token and returns the customer id.
func (m *TokenManager) VerifyRefresh(raw string) (string, error) {
	return m.verify(raw, tokenRefresh)
}

func (m *TokenManager) verify(raw, kind string) (string, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", ErrInvalidToken
	}
	if claims.Kind != kind || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
