package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func missingCart() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found").WithDetails(map[string]any{"reason": "cart"})
}

// CartFetch returns the caller's cart with live product data.
func CartFetch(svc cartsvc.Manager, cookie CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID := cartIDFromRequest(r, cookie)
		if cartID == nil {
			responses.WriteError(r.Context(), logg, w, missingCart())
			return
		}
		view, err := svc.GetCart(r.Context(), *cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem adds to the caller's cart, creating one when the caller has
// none. A new cart's token is returned in the body, header and cookie.
func CartAddItem(svc cartsvc.Manager, cookie CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		cartID := cartIDFromRequest(r, cookie)
		if cartID != nil && logg != nil {
			ctx = logg.WithCartID(ctx, cartID.String())
		}

		result, err := svc.AddItem(ctx, cartID, body.ProductID, body.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusOK
		if result.Created {
			setCartCookie(w, cookie, result.CartID)
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func CartUpdateItem(svc cartsvc.Manager, cookie CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cartID := cartIDFromRequest(r, cookie)
		if cartID == nil {
			responses.WriteError(r.Context(), logg, w, missingCart())
			return
		}

		view, err := svc.UpdateItemQuantity(r.Context(), *cartID, productID, *body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartRemoveItem is idempotent; a caller without a cart gets 204 as well.
func CartRemoveItem(svc cartsvc.Manager, cookie CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if cartID := cartIDFromRequest(r, cookie); cartID != nil {
			if err := svc.RemoveItem(r.Context(), *cartID, productID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func CartRemoveItems(svc cartsvc.Manager, cookie CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body removeItemsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if cartID := cartIDFromRequest(r, cookie); cartID != nil {
			if err := svc.RemoveItems(r.Context(), *cartID, body.ProductIDs); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
