package aggregator

import (
	"slices"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

// Rank 原地稳定排序：SEND 按目标数量降序，RECEIVE 按源数量升序，
// 同值按来源优先级 PATH > AMM > ORDERBOOK。
func Rank(quotes []quote.Quote, direction quote.Direction) {
	slices.SortStableFunc(quotes, func(a, b quote.Quote) int {
		return compare(a, b, direction)
	})
}

// compare 返回负数表示 a 优于 b。
func compare(a, b quote.Quote, direction quote.Direction) int {
	var c int
	if direction == quote.DirectionReceive {
		c = a.SourceAmount.Cmp(b.SourceAmount)
	} else {
		c = b.DestAmount.Cmp(a.DestAmount)
	}
	if c != 0 {
		return c
	}
	return a.Source.Priority() - b.Source.Priority()
}
