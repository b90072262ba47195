package calc

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func CalculateGrandTotal(subtotal, shippingTotal decimal.Decimal) decimal.Decimal {
	return subtotal.Add(shippingTotal)
}

// ToMinorUnits converts an amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
