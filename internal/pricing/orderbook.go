package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

// Fill 记录遍历中在某一档位成交的价格与源资产数量。
type Fill struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Walked 为一次深度遍历的结果。
type Walked struct {
	// Amount 为遍历得到的对侧数量，已按方向取整。
	Amount decimal.Decimal
	// Filled 为 false 表示深度不足，结果不可用于报价。
	Filled bool
	Fills  []Fill
}

// SourceFilled 返回各档成交的源资产数量之和，未取整。
func (w Walked) SourceFilled() decimal.Decimal {
	total := decimal.Zero
	for _, fill := range w.Fills {
		total = total.Add(fill.Amount)
	}
	return total
}

// Walk 按盘口顺序用 sendAmount 源资产吃单，返回可得目标数量（向下取整）。
func Walk(levels []quote.OrderBookLevel, sendAmount decimal.Decimal) Walked {
	if !sendAmount.IsPositive() {
		return Walked{Amount: decimal.Zero}
	}

	remaining := sendAmount
	dest := decimal.Zero
	fills := make([]Fill, 0, len(levels))

	for _, level := range levels {
		if !remaining.IsPositive() {
			break
		}
		if !level.Amount.IsPositive() || !level.Price.IsPositive() {
			continue
		}

		fill := decimal.Min(remaining, level.Amount)
		dest = dest.Add(fill.Mul(level.Price))
		remaining = remaining.Sub(fill)
		fills = append(fills, Fill{Price: level.Price, Amount: fill})
	}

	return Walked{
		Amount: RoundDown(dest),
		Filled: !remaining.IsPositive(),
		Fills:  fills,
	}
}

// WalkReceive 按盘口顺序凑足 destAmount 目标资产，返回所需源资产数量（向上取整）。
// Fills 中的 Amount 仍以源资产计，可直接用于 Impact。
func WalkReceive(levels []quote.OrderBookLevel, destAmount decimal.Decimal) Walked {
	if !destAmount.IsPositive() {
		return Walked{Amount: decimal.Zero}
	}

	remaining := destAmount
	source := decimal.Zero
	fills := make([]Fill, 0, len(levels))

	for _, level := range levels {
		if !remaining.IsPositive() {
			break
		}
		if !level.Amount.IsPositive() || !level.Price.IsPositive() {
			continue
		}

		capacity := level.Amount.Mul(level.Price)
		fillSource := level.Amount
		fillDest := capacity
		if remaining.LessThan(capacity) {
			fillDest = remaining
			fillSource = div(remaining, level.Price)
		}

		source = source.Add(fillSource)
		remaining = remaining.Sub(fillDest)
		fills = append(fills, Fill{Price: level.Price, Amount: fillSource})
	}

	return Walked{
		Amount: RoundUp(source),
		Filled: !remaining.IsPositive(),
		Fills:  fills,
	}
}

// NormalizeBook 重新排序盘口：丢弃非正档位，合并同价档位，Asks 升序、Bids 降序。
// 不信任数据源给出的顺序。
func NormalizeBook(book quote.BookSnapshot) quote.BookSnapshot {
	return quote.BookSnapshot{
		Asks: normalizeSide(book.Asks, func(a, b quote.OrderBookLevel) bool {
			return a.Price.LessThan(b.Price)
		}),
		Bids: normalizeSide(book.Bids, func(a, b quote.OrderBookLevel) bool {
			return a.Price.GreaterThan(b.Price)
		}),
	}
}

func normalizeSide(levels []quote.OrderBookLevel, less func(a, b quote.OrderBookLevel) bool) []quote.OrderBookLevel {
	tree := btree.NewBTreeG(less)
	for _, level := range levels {
		if !level.Price.IsPositive() || !level.Amount.IsPositive() {
			continue
		}
		if existing, ok := tree.Get(level); ok {
			level.Amount = level.Amount.Add(existing.Amount)
		}
		tree.Set(level)
	}

	out := make([]quote.OrderBookLevel, 0, tree.Len())
	tree.Scan(func(level quote.OrderBookLevel) bool {
		out = append(out, level)
		return true
	})
	return out
}
