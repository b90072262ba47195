package format

import (
	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
)

func FormatEuro(amount decimal.Decimal) string {
	return accounting.DefaultAccounting("€", 2).FormatMoneyDecimal(amount)
}
