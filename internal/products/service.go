package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/query"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Service exposes catalog browsing and back-office product management.
type Service interface {
	CreateProduct(ctx context.Context, actor auth.Actor, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	NameTaken(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	Inventory     int
	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID
	Images        []types.ImageRef
	Status        enums.ProductStatus
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	Inventory     *int
	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID
	Images        *[]types.ImageRef
	Status        *enums.ProductStatus
}

// ListProductsInput captures the public browse parameters.
type ListProductsInput struct {
	Query      string
	Sort       query.Sort
	Pagination pagination.Params
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    *Repository
	tx      txRunner
	emitter outbox.Emitter
	logg    *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, emitter: emitter, logg: logg}, nil
}

func (s *service) CreateProduct(ctx context.Context, actor auth.Actor, input CreateProductInput) (*ProductDTO, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if err := validateFields(name, input.Price, input.Inventory); err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = enums.ProductStatusActive
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
	}

	product := &models.Product{
		Name:          name,
		Description:   strings.TrimSpace(input.Description),
		Price:         input.Price.Round(2),
		Inventory:     input.Inventory,
		CategoryID:    input.CategoryID,
		SubcategoryID: input.SubcategoryID,
		Images:        append(types.ImageRefs{}, input.Images...),
		Status:        status,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		taken, err := txRepo.NameTaken(ctx, name, nil)
		if err != nil {
			return err
		}
		if taken {
			return nameTakenErr(name)
		}
		if err := txRepo.Create(ctx, product); err != nil {
			return err
		}
		return s.emitChange(ctx, tx, actor, enums.EventProductCreated, product)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product created")
	return NewProductDTO(product), nil
}

func (s *service) UpdateProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		applyUpdateToProduct(product, input)
		if err := validateFields(product.Name, product.Price, product.Inventory); err != nil {
			return err
		}
		if !product.Status.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
		}
		if input.Name != nil {
			taken, err := txRepo.NameTaken(ctx, product.Name, &product.ID)
			if err != nil {
				return err
			}
			if taken {
				return nameTakenErr(product.Name)
			}
		}
		if err := txRepo.Update(ctx, product.ID, product.Name, changedColumns(product, input)); err != nil {
			return err
		}
		if updated, err = txRepo.GetProduct(ctx, productID); err != nil {
			return err
		}
		return s.emitChange(ctx, tx, actor, enums.EventProductUpdated, updated)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "product_id", productID.String()), "product updated")
	return NewProductDTO(updated), nil
}

func (s *service) NameTaken(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	return s.repo.NameTaken(ctx, name, excludeID)
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	params := input.Pagination.Normalize()
	rows, total, err := s.repo.List(ctx, ListInput{
		Query:      input.Query,
		Sort:       input.Sort,
		Pagination: params,
	})
	if err != nil {
		return nil, err
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(&rows[i]))
	}
	return &ProductListResult{Products: out, Page: pagination.NewPage(params, total)}, nil
}

// GetProduct returns an active product. Inactive products are hidden from
// public reads.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": id})
	}
	return NewProductDTO(product), nil
}

func (s *service) emitChange(ctx context.Context, tx *gorm.DB, actor auth.Actor, eventType enums.OutboxEventType, p *models.Product) error {
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateProduct,
		AggregateID:   p.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: payloads.ProductChangedEvent{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Inventory: p.Inventory,
			Status:    p.Status,
		},
	})
}

func requireManager(actor auth.Actor) error {
	if actor.IsZero() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.CanManageCatalog() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "catalog management requires an administrator")
	}
	return nil
}

func validateFields(name string, price decimal.Decimal, inventory int) error {
	switch {
	case name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case price.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	case inventory < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "inventory must be non-negative")
	}
	return nil
}

// changedColumns maps the fields present in input to their normalized values
// on p.
func changedColumns(p *models.Product, input UpdateProductInput) map[string]any {
	values := map[string]any{}
	if input.Name != nil {
		values["name"] = p.Name
		values["name_key"] = models.NormalizeProductName(p.Name)
	}
	if input.Description != nil {
		values["description"] = p.Description
	}
	if input.Price != nil {
		values["price"] = p.Price
	}
	if input.Inventory != nil {
		values["inventory"] = p.Inventory
	}
	if input.CategoryID != nil {
		values["category_id"] = p.CategoryID
	}
	if input.SubcategoryID != nil {
		values["subcategory_id"] = p.SubcategoryID
	}
	if input.Images != nil {
		values["images"] = p.Images
	}
	if input.Status != nil {
		values["status"] = p.Status
	}
	return values
}

func applyUpdateToProduct(p *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		p.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		p.Price = input.Price.Round(2)
	}
	if input.Inventory != nil {
		p.Inventory = *input.Inventory
	}
	if input.CategoryID != nil {
		p.CategoryID = input.CategoryID
	}
	if input.SubcategoryID != nil {
		p.SubcategoryID = input.SubcategoryID
	}
	if input.Images != nil {
		p.Images = append(types.ImageRefs{}, (*input.Images)...)
	}
	if input.Status != nil {
		p.Status = *input.Status
	}
}
