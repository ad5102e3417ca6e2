package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCheckout struct {
	cartID uuid.UUID
	err    error
}

func (s *stubCheckout) Begin(_ context.Context, cartID uuid.UUID) (*checkout.BeginResult, error) {
	s.cartID = cartID
	if s.err != nil {
		return nil, s.err
	}
	return &checkout.BeginResult{CartID: cartID, PaymentIntentID: "pi_1", ClientSecret: "secret", Amount: decimal.RequireFromString("10.00"), Currency: "usd"}, nil
}

func TestBeginCheckoutUsesCookieToken(t *testing.T) {
	svc := &stubCheckout{}
	cartID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.AddCookie(&http.Cookie{Name: "cart_token", Value: cartID.String()})
	rec := httptest.NewRecorder()
	BeginCheckout(svc, "cart_token", nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cartID, svc.cartID)
	assert.Contains(t, rec.Body.String(), `"client_secret":"secret"`)
}

func TestBeginCheckoutWithoutCart(t *testing.T) {
	rec := httptest.NewRecorder()
	BeginCheckout(&stubCheckout{}, "cart_token", nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBeginCheckoutMapsOutOfStock(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeOutOfStock, "out of stock")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("X-Cart-Token", uuid.NewString())
	rec := httptest.NewRecorder()
	BeginCheckout(svc, "cart_token", nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeOutOfStock), errorCode(t, rec))
}
