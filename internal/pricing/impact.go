package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

// Impact 计算实际成交均价相对现价的偏离百分比：
//
//	avgPrice = Σ(fill.Amount * fill.Price) / totalSourceAmount
//	impact   = (avgPrice - spotPrice) / spotPrice * 100
func Impact(fills []Fill, spotPrice, totalSourceAmount decimal.Decimal) decimal.Decimal {
	if !spotPrice.IsPositive() || !totalSourceAmount.IsPositive() {
		return decimal.Zero
	}

	notional := decimal.Zero
	for _, fill := range fills {
		notional = notional.Add(fill.Amount.Mul(fill.Price))
	}

	avgPrice := div(notional, totalSourceAmount)
	return div(avgPrice.Sub(spotPrice), spotPrice).Mul(hundred).Round(quote.LedgerPrecision)
}
