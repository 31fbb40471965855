package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

type orientedPool struct {
	reserveIn  decimal.Decimal
	reserveOut decimal.Decimal
	destAsset  quote.Asset
	fee        decimal.Decimal
}

// orient 以资产精确相等匹配池子的输入侧。
func orient(pool quote.PoolSnapshot, sourceAsset quote.Asset) (orientedPool, bool) {
	if pool.FeeBps < 0 || pool.FeeBps >= 10000 {
		return orientedPool{}, false
	}

	out := orientedPool{fee: BpsFraction(pool.FeeBps)}
	switch {
	case pool.AssetA.Equal(sourceAsset):
		out.reserveIn, out.reserveOut, out.destAsset = pool.ReserveA, pool.ReserveB, pool.AssetB
	case pool.AssetB.Equal(sourceAsset):
		out.reserveIn, out.reserveOut, out.destAsset = pool.ReserveB, pool.ReserveA, pool.AssetA
	default:
		return orientedPool{}, false
	}

	if !out.reserveIn.IsPositive() || !out.reserveOut.IsPositive() {
		return orientedPool{}, false
	}
	return out, true
}

// Price 按恒定乘积公式对 sourceAmount 定价，手续费在公式之前扣除。
//
//	amountInAfterFee = sourceAmount * (1 - feeBps/10000)
//	destAmount       = reserveOut * amountInAfterFee / (reserveIn + amountInAfterFee)
//
// 价格冲击采用 sourceAmount/reserveIn 的边际近似，与订单簿的精确算法不同。
// 池子饱和时不做截断，公式本身趋近 reserveOut。
func Price(pool quote.PoolSnapshot, sourceAsset quote.Asset, sourceAmount decimal.Decimal) (quote.Quote, bool) {
	side, ok := orient(pool, sourceAsset)
	if !ok || !sourceAmount.IsPositive() {
		return quote.Quote{}, false
	}

	afterFee := sourceAmount.Mul(decimal.NewFromInt(1).Sub(side.fee))
	destAmount := RoundDown(div(side.reserveOut.Mul(afterFee), side.reserveIn.Add(afterFee)))
	if !destAmount.IsPositive() {
		return quote.Quote{}, false
	}

	return quote.Quote{
		Source:         quote.SourceAMM,
		Direction:      quote.DirectionSend,
		SourceAsset:    sourceAsset,
		DestAsset:      side.destAsset,
		SourceAmount:   sourceAmount,
		DestAmount:     destAmount,
		PriceImpactPct: marginalImpact(sourceAmount, side.reserveIn),
		FeeEstimate:    RoundUp(sourceAmount.Mul(side.fee)),
	}, true
}

// PriceReceive 求换得 destAmount 所需的源资产数量（向上取整）。
// destAmount 不小于 reserveOut 时池子无法满足。
func PriceReceive(pool quote.PoolSnapshot, sourceAsset quote.Asset, destAmount decimal.Decimal) (quote.Quote, bool) {
	side, ok := orient(pool, sourceAsset)
	if !ok || !destAmount.IsPositive() || destAmount.GreaterThanOrEqual(side.reserveOut) {
		return quote.Quote{}, false
	}

	afterFee := div(side.reserveIn.Mul(destAmount), side.reserveOut.Sub(destAmount))
	sourceAmount := RoundUp(div(afterFee, decimal.NewFromInt(1).Sub(side.fee)))

	return quote.Quote{
		Source:         quote.SourceAMM,
		Direction:      quote.DirectionReceive,
		SourceAsset:    sourceAsset,
		DestAsset:      side.destAsset,
		SourceAmount:   sourceAmount,
		DestAmount:     destAmount,
		PriceImpactPct: marginalImpact(sourceAmount, side.reserveIn),
		FeeEstimate:    RoundUp(sourceAmount.Mul(side.fee)),
	}, true
}

func marginalImpact(sourceAmount, reserveIn decimal.Decimal) decimal.Decimal {
	return div(sourceAmount, reserveIn).Mul(hundred).Round(quote.LedgerPrecision)
}
