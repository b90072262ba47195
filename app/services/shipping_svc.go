package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/repositories"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type ShippingCostResolver interface {
	ResolveShippingCost(ctx context.Context, variant *models.ProductVariant, country string, method models.ShippingMethod) (decimal.Decimal, error)
}

// ShippingResolver prices one unit of a physical variant. A missing template
// or rule never fails the order: the configured fallback is returned and the
// gap is logged and counted.
type ShippingResolver struct {
	catalog  repositories.CatalogRepository
	rules    repositories.ShippingRuleRepository
	fallback decimal.Decimal
	misses   atomic.Int64
}

func NewShippingResolver(catalog repositories.CatalogRepository, rules repositories.ShippingRuleRepository, fallback decimal.Decimal) *ShippingResolver {
	return &ShippingResolver{
		catalog:  catalog,
		rules:    rules,
		fallback: fallback,
	}
}

// ResolveShippingCost expects country and method to be validated already.
func (s *ShippingResolver) ResolveShippingCost(ctx context.Context, variant *models.ProductVariant, country string, method models.ShippingMethod) (decimal.Decimal, error) {
	country = models.NormalizeCountry(country)

	template, err := s.catalog.FindTemplateByMaterialSize(ctx, variant.Material, variant.Size)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load template for variant %d: %w", variant.ID, err)
	}
	if template == nil {
		return s.fallbackCost(variant, country, method, "no template for material and size"), nil
	}

	rule, err := s.rules.FindRule(ctx, template.ID, country, method)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load shipping rule for template %d: %w", template.ID, err)
	}
	if rule == nil {
		return s.fallbackCost(variant, country, method, "no shipping rule"), nil
	}

	return rule.Cost, nil
}

// MissingRuleCount is the number of lookups answered with the fallback since start.
func (s *ShippingResolver) MissingRuleCount() int64 {
	return s.misses.Load()
}

func (s *ShippingResolver) fallbackCost(variant *models.ProductVariant, country string, method models.ShippingMethod, reason string) decimal.Decimal {
	total := s.misses.Add(1)
	log.Warn().
		Uint("variant_id", variant.ID).
		Str("material", string(variant.Material)).
		Str("size", string(variant.Size)).
		Str("country", country).
		Str("method", string(method)).
		Str("fallback_cost", s.fallback.StringFixed(2)).
		Int64("missing_rule_total", total).
		Msgf("ShippingResolver: %s, applying fallback cost", reason)
	return s.fallback
}
