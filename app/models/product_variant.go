package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Material string

const (
	MaterialCanvas Material = "canvas"
	MaterialFramed Material = "framed"
)

type Size string

const (
	SizeA4 Size = "A4"
	SizeA3 Size = "A3"
	SizeA2 Size = "A2"
)

func (m Material) Valid() bool {
	return m == MaterialCanvas || m == MaterialFramed
}

func (s Size) Valid() bool {
	return s == SizeA4 || s == SizeA3 || s == SizeA2
}

// RetailMarkup is applied to a template's production cost to get the shelf price.
var RetailMarkup = decimal.RequireFromString("2.5")

type ProductTemplate struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Material       Material        `gorm:"type:varchar(20);not null;uniqueIndex:idx_template_material_size" json:"material"`
	Size           Size            `gorm:"type:varchar(5);not null;uniqueIndex:idx_template_material_size" json:"size"`
	ProductionCost decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"production_cost"`
	SKUSuffix      string          `gorm:"type:varchar(50);not null" json:"sku_suffix"`
	ExternalSKU    string          `gorm:"type:varchar(100)" json:"external_sku"`
	IsActive       bool            `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (t *ProductTemplate) RetailPrice() decimal.Decimal {
	return t.ProductionCost.Mul(RetailMarkup).Round(2)
}

// ProductVariant is a physical print of a photo. Price is copied from the
// template at creation and never follows later cost edits.
type ProductVariant struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	PhotoID     uint            `gorm:"not null;uniqueIndex:idx_variant_photo_material_size" json:"photo_id"`
	Photo       *Photo          `gorm:"foreignKey:PhotoID" json:"-"`
	Material    Material        `gorm:"type:varchar(20);not null;uniqueIndex:idx_variant_photo_material_size" json:"material"`
	Size        Size            `gorm:"type:varchar(5);not null;uniqueIndex:idx_variant_photo_material_size" json:"size"`
	Price       decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price"`
	InternalSKU string          `gorm:"type:varchar(100);uniqueIndex" json:"internal_sku"`
	ExternalSKU string          `gorm:"type:varchar(100)" json:"external_sku"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (v *ProductVariant) Title() string {
	if v.Photo != nil {
		return fmt.Sprintf("%s (%s %s)", v.Photo.Title, v.Material, v.Size)
	}
	return fmt.Sprintf("Print #%d (%s %s)", v.ID, v.Material, v.Size)
}

func InternalVariantSKU(photoID uint, suffix string) string {
	return fmt.Sprintf("OE-PHO-%d-%s", photoID, suffix)
}
