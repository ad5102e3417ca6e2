package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/query"
)

// Store is the catalog surface the cart and checkout flows depend on.
type Store interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	DecrementInventory(ctx context.Context, id uuid.UUID, qty int) error
	NameTaken(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

const nameKeyConstraint = "ux_products_name_key"

var listSchema = query.Schema{
	Fields: map[string]query.Field{
		"name": {Column: "name", Kind: query.KindString, Operators: []query.Operator{query.OpContains, query.OpEq}},
	},
	SortColumns: map[string]string{
		"created_at": "created_at",
		"price":      "price",
		"name":       "name_key",
	},
	DefaultSort: query.Sort{Field: "created_at", Desc: true},
}

// Repository persists products with GORM.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// GetProduct loads one product regardless of status.
func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return r.first(r.DB(ctx), id)
}

// GetProductForUpdate loads a product and, on Postgres, holds its row lock
// until the surrounding transaction ends. Inventory decrements for the same
// row wait behind it.
func (r *Repository) GetProductForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	q := r.DB(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.first(q, id)
}

func (r *Repository) first(q *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := q.First(&product, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, productNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

// GetProducts batch-loads products keyed by id. Unknown ids are absent from the result.
func (r *Repository) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// DecrementInventory subtracts qty in a single conditional statement so
// concurrent callers can never drive inventory below zero.
func (r *Repository) DecrementInventory(ctx context.Context, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"product_id": id, "quantity": qty})
	}
	res := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ? AND inventory >= ?", id, qty).
		UpdateColumn("inventory", gorm.Expr("inventory - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement inventory")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return productNotFound(id)
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient inventory").
		WithDetails(map[string]any{"product_id": id, "requested": qty})
}

// NameTaken reports whether another product already uses name, ignoring case
// and surrounding whitespace.
func (r *Repository) NameTaken(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	key := models.NormalizeProductName(name)
	if key == "" {
		return false, nil
	}
	q := r.DB(ctx).Model(&models.Product{}).Where("name_key = ?", key)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product name")
	}
	return count > 0, nil
}

// Exists reports whether a product row with id exists.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	return count > 0, nil
}

// Create inserts product. A name collision maps to NAME_TAKEN.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if err := r.DB(ctx).Create(product).Error; err != nil {
		return translateWriteErr(err, product.Name, "create product")
	}
	return nil
}

// Update writes only the listed columns. Columns left out, inventory in
// particular, keep whatever concurrent writers committed.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name string, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	res := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return translateWriteErr(res.Error, name, "update product")
	}
	if res.RowsAffected == 0 {
		return productNotFound(id)
	}
	return nil
}

// ListInput filters the public catalog listing.
type ListInput struct {
	Query      string
	Sort       query.Sort
	Pagination pagination.Params
	// IncludeInactive is only set by back-office callers.
	IncludeInactive bool
}

// List returns one page of products plus the total match count.
func (r *Repository) List(ctx context.Context, input ListInput) ([]models.Product, int64, error) {
	var filters []query.Filter
	if q := strings.TrimSpace(input.Query); q != "" {
		filters = append(filters, query.Filter{Field: "name", Operator: query.OpContains, Value: q})
	}
	base, err := listSchema.Apply(r.DB(ctx).Model(&models.Product{}), filters)
	if err != nil {
		return nil, 0, err
	}
	if !input.IncludeInactive {
		base = base.Where("status = ?", enums.ProductStatusActive)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}

	var rows []models.Product
	page := input.Pagination.Normalize()
	if err := listSchema.ApplySort(base.Session(&gorm.Session{}), input.Sort).
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return rows, total, nil
}

func translateWriteErr(err error, name, action string) error {
	if db.IsUniqueViolation(err, nameKeyConstraint) {
		return nameTakenErr(name)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func productNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithDetails(map[string]any{"product_id": id})
}

func nameTakenErr(name string) error {
	return pkgerrors.New(pkgerrors.CodeNameTaken, "product name already taken").
		WithDetails(map[string]any{"name": name})
}

// TxStore binds the catalog Store to tx for callers that compose it with other
// repositories in one transaction.
func (r *Repository) TxStore(tx *gorm.DB) Store {
	return r.WithTx(tx)
}
