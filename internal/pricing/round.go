// Package pricing 实现订单簿深度遍历、恒定乘积池定价与价格冲击计算。
// 所有计算均使用十进制定点数，不经过二进制浮点。
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

// divPrecision 为中间除法保留的小数位，远高于账本精度。
const divPrecision int32 = 24

var hundred = decimal.NewFromInt(100)

// RoundDown 向下取整到账本精度，用于可交付数量，避免高估。
func RoundDown(d decimal.Decimal) decimal.Decimal {
	return d.RoundFloor(quote.LedgerPrecision)
}

// RoundUp 向上取整到账本精度，用于所需成本，避免低估。
func RoundUp(d decimal.Decimal) decimal.Decimal {
	return d.RoundCeil(quote.LedgerPrecision)
}

// BpsFraction 将基点转换为精确的小数比例，例如 30 -> 0.003。
func BpsFraction(bps int) decimal.Decimal {
	return decimal.New(int64(bps), -4)
}

func div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, divPrecision)
}
