package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/craftbazaar/marketplace/internal/domain/customer"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	TokenPair
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.customers.Register(r.Context(), customer.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Address:  req.Address,
		Phone:    req.Phone,
	})
	if err != nil {
		var missing *customer.MissingFieldError
		switch {
		case errors.As(err, &missing):
			respondError(w, r, http.StatusBadRequest, missing.Error())
		case errors.Is(err, customer.ErrEmailTaken):
			respondError(w, r, http.StatusConflict, "email already registered")
		default:
			zctx.From(r.Context()).Error("register", zap.Error(err))
			respondError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.respondTokens(w, r, http.StatusCreated, c)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.customers.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, customer.ErrInvalidCredentials) {
			respondError(w, r, http.StatusUnauthorized, "invalid email or password")
			return
		}
		zctx.From(r.Context()).Error("login", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	h.respondTokens(w, r, http.StatusOK, c)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		respondError(w, r, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	access, err := h.tokens.IssueAccess(id)
	if err != nil {
		zctx.From(r.Context()).Error("issue access token", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, r, http.StatusOK, TokenPair{AccessToken: access})
}

// logout is stateless: tokens are not tracked server-side, so the client
// simply discards them. Kept for API compatibility.
func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondTokens(w http.ResponseWriter, r *http.Request, code int, c *customer.Customer) {
	pair, err := h.tokens.Issue(c.ID)
	if err != nil {
		zctx.From(r.Context()).Error("issue tokens", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, r, code, authResponse{
		CustomerID: c.ID,
		Name:       c.Name,
		Email:      c.Email,
		TokenPair:  pair,
	})
}
