package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderItem is a frozen snapshot of one purchased line. Nothing here
// follows the catalog after creation.
type OrderItem struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	OrderID      uint              `gorm:"not null;index" json:"-"`
	ProductType  ProductKind       `gorm:"type:varchar(20);not null" json:"product_type"`
	ProductID    uint              `gorm:"not null" json:"product_id"`
	ProductTitle string            `gorm:"type:varchar(254)" json:"product_title"`
	ExternalSKU  string            `gorm:"type:varchar(100)" json:"-"`
	Quantity     int               `gorm:"not null" json:"quantity"`
	UnitPrice    decimal.Decimal   `gorm:"type:decimal(8,2);not null" json:"unit_price"`
	ItemTotal    decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"item_total"`
	Options      datatypes.JSONMap `gorm:"type:json" json:"options,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (oi *OrderItem) Ref() ProductRef {
	return ProductRef{Kind: oi.ProductType, ID: oi.ProductID}
}
