package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ShippingMethod string

const (
	ShippingBudget   ShippingMethod = "budget"
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

var ShippingMethods = []ShippingMethod{ShippingBudget, ShippingStandard, ShippingExpress}

// ParseShippingMethod defaults an empty value to budget.
func ParseShippingMethod(s string) (ShippingMethod, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ShippingBudget, true
	}
	for _, m := range ShippingMethods {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// ShippableCountries lists the ISO 3166-1 alpha-2 codes physical prints can ship to.
var ShippableCountries = []string{"IE", "US"}

func NormalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsShippableCountry(code string) bool {
	code = NormalizeCountry(code)
	for _, c := range ShippableCountries {
		if c == code {
			return true
		}
	}
	return false
}

type ShippingRule struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	TemplateID uint             `gorm:"not null;uniqueIndex:idx_shipping_rule_key" json:"template_id"`
	Template   *ProductTemplate `gorm:"foreignKey:TemplateID" json:"-"`
	Country    string           `gorm:"type:varchar(2);not null;uniqueIndex:idx_shipping_rule_key" json:"country"`
	Method     ShippingMethod   `gorm:"type:varchar(20);not null;uniqueIndex:idx_shipping_rule_key" json:"method"`
	Cost       decimal.Decimal  `gorm:"type:decimal(8,2);not null" json:"cost"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
