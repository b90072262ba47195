package services

import (
	"context"
	"errors"
	"testing"

	"github.com/openeire/openeire-api/app/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals_PhysicalWithRule(t *testing.T) {
	calc := testCalculator()

	totals, err := calc.ComputeTotals(context.Background(), []CartItem{
		{ProductID: 1, ProductType: "physical", Quantity: 2},
	}, "ie", "standard")

	require.NoError(t, err)
	assert.Equal(t, "60.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", totals.ShippingTotal.StringFixed(2))
	assert.Equal(t, "70.00", totals.GrandTotal.StringFixed(2))
	assert.Equal(t, "IE", totals.Country)
	assert.Equal(t, models.ShippingStandard, totals.ShippingMethod)
	require.Len(t, totals.Lines, 1)
	assert.Equal(t, models.KindPhysicalVariant, totals.Lines[0].Product.Kind)
	assert.Equal(t, "GLOBAL-CAN-A4", totals.Lines[0].ExternalSKU)
	assert.True(t, totals.HasPhysical())
}

func TestComputeTotals_DigitalLicense(t *testing.T) {
	tests := []struct {
		name        string
		item        CartItem
		wantTotal   string
		wantLicense string
	}{
		{"photo 4k", CartItem{ProductID: 10, ProductType: "digital_photo", Quantity: 1, Options: map[string]any{"license": "4k"}}, "20.00", "4k"},
		{"photo default", CartItem{ProductID: 10, ProductType: "photo", Quantity: 1}, "10.00", "hd"},
		{"photo unknown tier", CartItem{ProductID: 10, ProductType: "photo", Quantity: 1, Options: map[string]any{"license": "8k"}}, "10.00", "hd"},
		{"video 4k upper case", CartItem{ProductID: 20, ProductType: "video", Quantity: 2, Options: map[string]any{"license": "4K"}}, "90.00", "4k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := testCalculator().ComputeTotals(context.Background(), []CartItem{tt.item}, "", "")

			require.NoError(t, err)
			require.Len(t, totals.Lines, 1)
			assert.Equal(t, tt.wantTotal, totals.Lines[0].ItemTotal.StringFixed(2))
			assert.Equal(t, tt.wantLicense, totals.Lines[0].Options["license"])
			assert.True(t, totals.ShippingTotal.IsZero())
			assert.Equal(t, tt.wantTotal, totals.GrandTotal.StringFixed(2))
			assert.False(t, totals.HasPhysical())
		})
	}
}

func TestComputeTotals_DigitalOnlyIgnoresCountry(t *testing.T) {
	totals, err := testCalculator().ComputeTotals(context.Background(), []CartItem{
		{ProductID: 10, ProductType: "photo", Quantity: 1},
	}, "DE", "express")

	require.NoError(t, err)
	assert.True(t, totals.ShippingTotal.IsZero())
}

func TestComputeTotals_DisallowedCountryNamesCountry(t *testing.T) {
	_, err := testCalculator().ComputeTotals(context.Background(), []CartItem{
		{ProductID: 1, ProductType: "physical_variant", Quantity: 1},
	}, "DE", "standard")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisallowedCountry)
	assert.ErrorIs(t, err, ErrCartValidation)
	assert.Contains(t, err.Error(), "DE")
	assert.True(t, IsClientError(err))
}

func TestComputeTotals_MissingRuleUsesFallback(t *testing.T) {
	catalog := testCatalog()
	resolver := NewShippingResolver(catalog, &fakeRules{}, decimal.RequireFromString("3.50"))
	calc := NewOrderCalculator(catalog, resolver)

	totals, err := calc.ComputeTotals(context.Background(), []CartItem{
		{ProductID: 1, ProductType: "physical", Quantity: 2},
	}, "US", "express")

	require.NoError(t, err)
	assert.Equal(t, "7.00", totals.ShippingTotal.StringFixed(2))
	assert.Equal(t, "67.00", totals.GrandTotal.StringFixed(2))
	assert.Equal(t, int64(1), resolver.MissingRuleCount())
}

func TestComputeTotals_GrandTotalIsSumOfLines(t *testing.T) {
	totals, err := testCalculator().ComputeTotals(context.Background(), []CartItem{
		{ProductID: 1, ProductType: "physical", Quantity: 3},
		{ProductID: 10, ProductType: "photo", Quantity: 1, Options: map[string]any{"license": "4k"}},
		{ProductID: 20, ProductType: "video", Quantity: 1},
	}, "US", "standard")

	require.NoError(t, err)

	itemSum := decimal.Zero
	shipSum := decimal.Zero
	for _, line := range totals.Lines {
		itemSum = itemSum.Add(line.ItemTotal)
		shipSum = shipSum.Add(line.ShippingCost)
	}
	assert.True(t, totals.GrandTotal.Equal(itemSum.Add(shipSum)))
	assert.Equal(t, "135.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "36.00", totals.ShippingTotal.StringFixed(2))
}

func TestComputeTotals_Rejections(t *testing.T) {
	catalog := testCatalog()
	catalog.photos[11] = &models.Photo{ID: 11, Title: "Hidden", PriceHD: dec("5"), Price4K: dec("9"), IsActive: false}
	calc := NewOrderCalculator(catalog, NewShippingResolver(catalog, testRules(), decimal.Zero))

	tests := []struct {
		name    string
		cart    []CartItem
		method  string
		wantErr error
	}{
		{"empty cart", nil, "", ErrEmptyCart},
		{"zero quantity", []CartItem{{ProductID: 10, ProductType: "photo", Quantity: 0}}, "", ErrInvalidQuantity},
		{"unknown type", []CartItem{{ProductID: 10, ProductType: "poster", Quantity: 1}}, "", ErrUnknownProductType},
		{"missing product", []CartItem{{ProductID: 99, ProductType: "photo", Quantity: 1}}, "", ErrProductNotFound},
		{"inactive product", []CartItem{{ProductID: 11, ProductType: "photo", Quantity: 1}}, "", ErrProductUnavailable},
		{"bad method", []CartItem{{ProductID: 10, ProductType: "photo", Quantity: 1}}, "overnight", ErrInvalidShippingMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := calc.ComputeTotals(context.Background(), tt.cart, "IE", tt.method)
			assert.Nil(t, totals)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsClientError(err))
		})
	}
}

func TestComputeTotals_RepositoryErrorIsNotClientError(t *testing.T) {
	catalog := testCatalog()
	catalog.err = errors.New("connection reset")
	calc := NewOrderCalculator(catalog, NewShippingResolver(catalog, testRules(), decimal.Zero))

	_, err := calc.ComputeTotals(context.Background(), []CartItem{{ProductID: 10, ProductType: "photo", Quantity: 1}}, "", "")

	require.Error(t, err)
	assert.False(t, IsClientError(err))
}

func TestTotalsCart_CanonicalKinds(t *testing.T) {
	totals, err := testCalculator().ComputeTotals(context.Background(), []CartItem{
		{ProductID: 10, ProductType: "photo", Quantity: 1},
	}, "", "")
	require.NoError(t, err)

	cart := totals.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, "digital_photo", cart[0].ProductType)
	assert.Equal(t, "hd", cart[0].Options["license"])
}
