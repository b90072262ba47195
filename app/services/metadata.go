package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/openeire/openeire-api/app/models"
	"github.com/shopspring/decimal"
)

const (
	metaCart           = "cart"
	metaCartParts      = "cart_parts"
	metaUsername       = "username"
	metaSaveInfo       = "save_info"
	metaShippingCost   = "shipping_cost"
	metaShippingMethod = "shipping_method"
	metaCountry        = "country"

	// Stripe limits each metadata value to 500 characters and a map to 50 keys.
	maxMetadataValueLen = 500
	maxMetadataKeys     = 50

	GuestCustomer = "Guest"
)

// CheckoutMetadata is everything the confirmation step needs to rebuild an
// order. It travels with the payment because nothing is stored locally
// between authorization and confirmation.
type CheckoutMetadata struct {
	Cart            []CartItem
	Customer        string
	SaveInfo        bool
	ShippingCost    decimal.Decimal
	HasShippingCost bool
	ShippingMethod  models.ShippingMethod
	Country         string
}

func PackCheckoutMetadata(m CheckoutMetadata) (map[string]string, error) {
	cartJSON, err := json.Marshal(m.Cart)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart: %w", err)
	}

	customer := m.Customer
	if customer == "" {
		customer = GuestCustomer
	}

	md := map[string]string{
		metaUsername:       customer,
		metaSaveInfo:       strconv.FormatBool(m.SaveInfo),
		metaShippingCost:   m.ShippingCost.StringFixed(2),
		metaShippingMethod: string(m.ShippingMethod),
	}
	if m.Country != "" {
		md[metaCountry] = m.Country
	}

	cart := string(cartJSON)
	if len(cart) <= maxMetadataValueLen {
		md[metaCart] = cart
		return md, nil
	}

	parts := chunk(cart, maxMetadataValueLen)
	if len(md)+1+len(parts) > maxMetadataKeys {
		return nil, fmt.Errorf("%w: %d bytes of cart data", ErrCartTooLarge, len(cart))
	}
	md[metaCartParts] = strconv.Itoa(len(parts))
	for i, part := range parts {
		md[fmt.Sprintf("%s_%d", metaCart, i)] = part
	}
	return md, nil
}

func UnpackCheckoutMetadata(md map[string]string) (*CheckoutMetadata, error) {
	cart, err := joinCart(md)
	if err != nil {
		return nil, err
	}

	var items []CartItem
	if err := json.Unmarshal([]byte(cart), &items); err != nil {
		return nil, fmt.Errorf("%w: cart: %v", ErrInvalidMetadata, err)
	}

	out := &CheckoutMetadata{
		Cart:     items,
		Customer: strings.TrimSpace(md[metaUsername]),
		SaveInfo: md[metaSaveInfo] == "true",
		Country:  md[metaCountry],
	}
	if out.Customer == "" {
		out.Customer = GuestCustomer
	}

	method, ok := models.ParseShippingMethod(md[metaShippingMethod])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidShippingMethod, md[metaShippingMethod])
	}
	out.ShippingMethod = method

	if raw := md[metaShippingCost]; raw != "" {
		cost, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: shipping cost %q", ErrInvalidMetadata, raw)
		}
		out.ShippingCost = cost
		out.HasShippingCost = true
	}

	return out, nil
}

func joinCart(md map[string]string) (string, error) {
	if cart, ok := md[metaCart]; ok {
		return cart, nil
	}

	raw, ok := md[metaCartParts]
	if !ok {
		return "", fmt.Errorf("%w: cart missing", ErrInvalidMetadata)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxMetadataKeys {
		return "", fmt.Errorf("%w: cart_parts %q", ErrInvalidMetadata, raw)
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		part, ok := md[fmt.Sprintf("%s_%d", metaCart, i)]
		if !ok {
			return "", fmt.Errorf("%w: cart part %d missing", ErrInvalidMetadata, i)
		}
		b.WriteString(part)
	}
	return b.String(), nil
}

// chunk splits s into pieces of at most size bytes without cutting a rune.
func chunk(s string, size int) []string {
	var parts []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = size
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
