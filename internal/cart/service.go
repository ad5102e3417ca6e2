package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Manager owns the cart lifecycle: Open until closed, never reopened.
type Manager interface {
	GetCart(ctx context.Context, cartID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, cartID *uuid.UUID, productID uuid.UUID, qty int) (*AddItemResult, error)
	UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) (*CartView, error)
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error
	RemoveItems(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error
	CloseCart(ctx context.Context, cartID uuid.UUID) error
}

// AddItemResult reports which cart received the item and whether it was
// created by this call.
type AddItemResult struct {
	CartID  uuid.UUID `json:"cart_id"`
	Created bool      `json:"created"`
	Cart    *CartView `json:"cart"`
}

type manager struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	logg     *logger.Logger
	now      func() time.Time
}

// NewManager builds a cart manager backed by the provided stack.
func NewManager(repo CartRepository, tx txRunner, products productLoader, logg *logger.Logger) (Manager, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &manager{repo: repo, tx: tx, products: products, logg: logg, now: time.Now}, nil
}

func (m *manager) GetCart(ctx context.Context, cartID uuid.UUID) (*CartView, error) {
	cart, err := m.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := m.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	return buildView(cart, products), nil
}

func (m *manager) AddItem(ctx context.Context, cartID *uuid.UUID, productID uuid.UUID, qty int) (*AddItemResult, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": qty})
	}
	product, err := m.purchasable(ctx, productID)
	if err != nil {
		return nil, err
	}

	result := &AddItemResult{}
	err = m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := m.repo.WithTx(tx)

		var cart *models.Cart
		if cartID != nil {
			found, findErr := txRepo.FindByIDForUpdate(ctx, *cartID)
			if findErr != nil && !IsCartNotFound(findErr) {
				return findErr
			}
			cart = found
		}

		if cart == nil {
			if err := ensureStock(product, qty); err != nil {
				return err
			}
			cart = &models.Cart{Items: types.CartItems{{ProductID: productID, Quantity: qty}}}
			if err := txRepo.Create(ctx, cart); err != nil {
				return err
			}
			result.CartID = cart.ID
			result.Created = true
			return nil
		}

		if cart.Closed {
			return cartClosed(cart.ID)
		}
		items := append(types.CartItems{}, cart.Items...)
		idx := indexOf(items, productID)
		resulting := qty
		if idx >= 0 {
			resulting += items[idx].Quantity
		}
		if err := ensureStock(product, resulting); err != nil {
			return err
		}
		if idx >= 0 {
			items[idx].Quantity = resulting
		} else {
			items = append(items, types.CartItem{ProductID: productID, Quantity: qty})
		}
		result.CartID = cart.ID
		return txRepo.SaveItems(ctx, cart.ID, items)
	})
	if err != nil {
		return nil, err
	}

	logCtx := m.logg.WithCartID(ctx, result.CartID.String())
	if result.Created {
		m.logg.Info(logCtx, "cart created")
	}
	m.logg.Debug(m.logg.WithField(logCtx, "product_id", productID.String()), "cart item added")

	view, err := m.GetCart(ctx, result.CartID)
	if err != nil {
		return nil, err
	}
	result.Cart = view
	return result, nil
}

func (m *manager) UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) (*CartView, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative").
			WithDetails(map[string]any{"quantity": qty})
	}

	var product *models.Product
	if qty > 0 {
		p, err := m.purchasable(ctx, productID)
		if err != nil {
			return nil, err
		}
		product = p
	}

	err := m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := m.repo.WithTx(tx)
		cart, err := txRepo.FindByIDForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.Closed {
			return cartClosed(cart.ID)
		}
		items := append(types.CartItems{}, cart.Items...)
		idx := indexOf(items, productID)
		if qty == 0 {
			if idx < 0 {
				return nil
			}
			return txRepo.SaveItems(ctx, cart.ID, removeAt(items, idx))
		}
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart").
				WithDetails(map[string]any{"reason": "item", "product_id": productID})
		}
		if err := ensureStock(product, qty); err != nil {
			return err
		}
		items[idx].Quantity = qty
		return txRepo.SaveItems(ctx, cart.ID, items)
	})
	if err != nil {
		return nil, err
	}
	return m.GetCart(ctx, cartID)
}

func (m *manager) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return m.RemoveItems(ctx, cartID, []uuid.UUID{productID})
}

// RemoveItems drops the listed products. Absent products and unknown carts
// are treated as already removed.
func (m *manager) RemoveItems(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error {
	drop := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		drop[id] = struct{}{}
	}
	return m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := m.repo.WithTx(tx)
		cart, err := txRepo.FindByIDForUpdate(ctx, cartID)
		if err != nil {
			if IsCartNotFound(err) {
				return nil
			}
			return err
		}
		if cart.Closed {
			return cartClosed(cart.ID)
		}
		kept := make(types.CartItems, 0, len(cart.Items))
		for _, item := range cart.Items {
			if _, ok := drop[item.ProductID]; !ok {
				kept = append(kept, item)
			}
		}
		if len(kept) == len(cart.Items) {
			return nil
		}
		return txRepo.SaveItems(ctx, cart.ID, kept)
	})
}

func (m *manager) CloseCart(ctx context.Context, cartID uuid.UUID) error {
	if err := m.repo.Close(ctx, cartID, m.now()); err != nil {
		return err
	}
	m.logg.Info(m.logg.WithCartID(ctx, cartID.String()), "cart closed")
	return nil
}

func (m *manager) purchasable(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := m.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	return product, nil
}

func ensureStock(product *models.Product, qty int) error {
	if qty > product.Inventory {
		return pkgerrors.New(pkgerrors.CodeOutOfStock, "requested quantity exceeds available stock").
			WithDetails(map[string]any{
				"product_id": product.ID,
				"requested":  qty,
				"available":  product.Inventory,
			})
	}
	return nil
}

func indexOf(items types.CartItems, productID uuid.UUID) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func removeAt(items types.CartItems, idx int) types.CartItems {
	return append(items[:idx], items[idx+1:]...)
}
