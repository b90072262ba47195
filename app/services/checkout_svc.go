package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/repositories"
	"github.com/openeire/openeire-api/app/utils/calc"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CartItem is a client-supplied line. It never carries a price.
type CartItem struct {
	ProductID   uint           `json:"product_id" validate:"required,gt=0"`
	ProductType string         `json:"product_type" validate:"required"`
	Quantity    int            `json:"quantity" validate:"required,min=1"`
	Options     map[string]any `json:"options,omitempty"`
}

type PricedLine struct {
	Product      models.ProductRef `json:"product"`
	Title        string            `json:"title"`
	Quantity     int               `json:"quantity"`
	Options      map[string]any    `json:"options,omitempty"`
	UnitPrice    decimal.Decimal   `json:"unit_price"`
	ItemTotal    decimal.Decimal   `json:"item_total"`
	ShippingCost decimal.Decimal   `json:"shipping_cost"`
	ExternalSKU  string            `json:"-"`
}

type Totals struct {
	Lines          []PricedLine          `json:"line_items"`
	Country        string                `json:"country,omitempty"`
	ShippingMethod models.ShippingMethod `json:"shipping_method"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	ShippingTotal  decimal.Decimal       `json:"shipping_total"`
	GrandTotal     decimal.Decimal       `json:"grand_total"`
}

func (t *Totals) HasPhysical() bool {
	for _, line := range t.Lines {
		if line.Product.Kind.IsPhysical() {
			return true
		}
	}
	return false
}

// Cart returns the priced lines in their canonical cart form.
func (t *Totals) Cart() []CartItem {
	items := make([]CartItem, 0, len(t.Lines))
	for _, line := range t.Lines {
		items = append(items, CartItem{
			ProductID:   line.Product.ID,
			ProductType: string(line.Product.Kind),
			Quantity:    line.Quantity,
			Options:     line.Options,
		})
	}
	return items
}

type TotalsCalculator interface {
	ComputeTotals(ctx context.Context, cart []CartItem, country, shippingMethod string) (*Totals, error)
}

type resolvedProduct struct {
	title       string
	unitPrice   decimal.Decimal
	options     map[string]any
	externalSKU string
	variant     *models.ProductVariant
}

type productResolver func(ctx context.Context, id uint, options map[string]any) (*resolvedProduct, error)

type OrderCalculator struct {
	catalog   repositories.CatalogRepository
	shipping  ShippingCostResolver
	resolvers map[models.ProductKind]productResolver
}

func NewOrderCalculator(catalog repositories.CatalogRepository, shipping ShippingCostResolver) *OrderCalculator {
	c := &OrderCalculator{
		catalog:  catalog,
		shipping: shipping,
	}
	c.resolvers = map[models.ProductKind]productResolver{
		models.KindDigitalPhoto:    c.resolvePhoto,
		models.KindDigitalVideo:    c.resolveVideo,
		models.KindPhysicalVariant: c.resolveVariant,
	}
	return c
}

// ComputeTotals prices every line from the catalog. Any unknown, missing or
// inactive product rejects the whole cart.
func (c *OrderCalculator) ComputeTotals(ctx context.Context, cart []CartItem, country, shippingMethod string) (*Totals, error) {
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	method, ok := models.ParseShippingMethod(shippingMethod)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidShippingMethod, shippingMethod)
	}
	country = models.NormalizeCountry(country)

	totals := &Totals{
		Lines:          make([]PricedLine, 0, len(cart)),
		Country:        country,
		ShippingMethod: method,
		Subtotal:       decimal.Zero,
		ShippingTotal:  decimal.Zero,
	}

	for i, item := range cart {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: line %d has quantity %d", ErrInvalidQuantity, i, item.Quantity)
		}

		kind, ok := models.ParseProductKind(item.ProductType)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProductType, item.ProductType)
		}
		if kind.IsPhysical() && !models.IsShippableCountry(country) {
			return nil, fmt.Errorf("%w: %q", ErrDisallowedCountry, country)
		}

		product, err := c.resolvers[kind](ctx, item.ProductID, item.Options)
		if err != nil {
			return nil, err
		}

		line := PricedLine{
			Product:      models.ProductRef{Kind: kind, ID: item.ProductID},
			Title:        product.title,
			Quantity:     item.Quantity,
			Options:      product.options,
			UnitPrice:    product.unitPrice,
			ItemTotal:    calc.LineTotal(product.unitPrice, item.Quantity),
			ShippingCost: decimal.Zero,
			ExternalSKU:  product.externalSKU,
		}

		if kind.IsPhysical() {
			unitShipping, err := c.shipping.ResolveShippingCost(ctx, product.variant, country, method)
			if err != nil {
				return nil, err
			}
			line.ShippingCost = calc.LineTotal(unitShipping, item.Quantity)
		}

		totals.Subtotal = totals.Subtotal.Add(line.ItemTotal)
		totals.ShippingTotal = totals.ShippingTotal.Add(line.ShippingCost)
		totals.Lines = append(totals.Lines, line)
	}

	totals.GrandTotal = calc.CalculateGrandTotal(totals.Subtotal, totals.ShippingTotal)
	return totals, nil
}

func (c *OrderCalculator) resolvePhoto(ctx context.Context, id uint, options map[string]any) (*resolvedProduct, error) {
	photo, err := c.catalog.FindPhotoByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load photo %d: %w", id, err)
	}
	if photo == nil {
		return nil, fmt.Errorf("%w: photo %d", ErrProductNotFound, id)
	}
	if !photo.IsActive {
		return nil, fmt.Errorf("%w: photo %d", ErrProductUnavailable, id)
	}

	requested := licenseOption(options)
	price, applied := photo.PriceForLicense(requested)
	warnUnknownLicense(models.KindDigitalPhoto, id, requested)

	return &resolvedProduct{
		title:     photo.Title,
		unitPrice: price,
		options:   withLicense(options, applied),
	}, nil
}

func (c *OrderCalculator) resolveVideo(ctx context.Context, id uint, options map[string]any) (*resolvedProduct, error) {
	video, err := c.catalog.FindVideoByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load video %d: %w", id, err)
	}
	if video == nil {
		return nil, fmt.Errorf("%w: video %d", ErrProductNotFound, id)
	}
	if !video.IsActive {
		return nil, fmt.Errorf("%w: video %d", ErrProductUnavailable, id)
	}

	requested := licenseOption(options)
	price, applied := video.PriceForLicense(requested)
	warnUnknownLicense(models.KindDigitalVideo, id, requested)

	return &resolvedProduct{
		title:     video.Title,
		unitPrice: price,
		options:   withLicense(options, applied),
	}, nil
}

// Physical variants are flat priced; options are ignored.
func (c *OrderCalculator) resolveVariant(ctx context.Context, id uint, _ map[string]any) (*resolvedProduct, error) {
	variant, err := c.catalog.FindVariantByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load variant %d: %w", id, err)
	}
	if variant == nil {
		return nil, fmt.Errorf("%w: physical variant %d", ErrProductNotFound, id)
	}
	if !variant.IsActive || (variant.Photo != nil && !variant.Photo.IsActive) {
		return nil, fmt.Errorf("%w: physical variant %d", ErrProductUnavailable, id)
	}

	return &resolvedProduct{
		title:       variant.Title(),
		unitPrice:   variant.Price,
		externalSKU: variant.ExternalSKU,
		variant:     variant,
	}, nil
}

func licenseOption(options map[string]any) string {
	if options == nil {
		return ""
	}
	license, _ := options["license"].(string)
	return license
}

func warnUnknownLicense(kind models.ProductKind, id uint, license string) {
	if !models.IsKnownLicense(license) {
		log.Warn().
			Str("product_type", string(kind)).
			Uint("product_id", id).
			Str("license", license).
			Msg("OrderCalculator: unrecognized license tier, pricing as hd")
	}
}

func withLicense(options map[string]any, license string) map[string]any {
	out := make(map[string]any, len(options)+1)
	for k, v := range options {
		out[k] = v
	}
	out["license"] = strings.ToLower(license)
	return out
}
