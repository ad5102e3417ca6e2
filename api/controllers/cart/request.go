package cart

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
)

// CookieConfig controls the anonymous cart cookie.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

type removeItemsRequest struct {
	ProductIDs []uuid.UUID `json:"product_ids" validate:"required,min=1"`
}

// cartIDFromRequest returns nil when the caller has no usable token.
func cartIDFromRequest(r *http.Request, cookie CookieConfig) *uuid.UUID {
	raw := middleware.CartToken(r, cookie.Name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func setCartCookie(w http.ResponseWriter, cookie CookieConfig, cartID uuid.UUID) {
	w.Header().Set(middleware.CartTokenHeader, cartID.String())
	if cookie.Name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    cartID.String(),
		Path:     "/",
		MaxAge:   int(cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
