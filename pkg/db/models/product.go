package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Product is a catalog entry with its authoritative inventory count.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name          string              `gorm:"column:name;not null"`
	NameKey       string              `gorm:"column:name_key;not null;uniqueIndex:ux_products_name_key"`
	Description   string              `gorm:"column:description;not null;default:''"`
	Price         decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Inventory     int                 `gorm:"column:inventory;not null;default:0;check:ck_products_inventory_non_negative,inventory >= 0"`
	CategoryID    *uuid.UUID          `gorm:"column:category_id;type:uuid"`
	SubcategoryID *uuid.UUID          `gorm:"column:subcategory_id;type:uuid"`
	Images        types.ImageRefs     `gorm:"column:images;type:jsonb;not null"`
	Status        enums.ProductStatus `gorm:"column:status;not null;default:active"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// NormalizeProductName produces the case-insensitive uniqueness key for a name.
func NormalizeProductName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	p.NameKey = NormalizeProductName(p.Name)
	if p.Status == "" {
		p.Status = enums.ProductStatusActive
	}
	if p.Images == nil {
		p.Images = types.ImageRefs{}
	}
	return nil
}

func (p *Product) BeforeSave(*gorm.DB) error {
	p.NameKey = NormalizeProductName(p.Name)
	return nil
}

// IsActive reports whether the product can be added to carts.
func (p Product) IsActive() bool {
	return p.Status == enums.ProductStatusActive
}
