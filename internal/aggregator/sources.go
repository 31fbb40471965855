package aggregator

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/pricing"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

// orderBookQuotes 拉取订单簿并遍历买盘，产生 0..1 个 ORDERBOOK 报价。
// 订单簿以源资产为 base 请求，发送方能成交的是买入源资产的报价，即 Bids，按价格降序最优在前。
func (a *Aggregator) orderBookQuotes(ctx context.Context, req quote.QuoteRequest) ([]quote.Quote, error) {
	book, err := a.books.FetchOrderBook(ctx, req.SourceAsset, req.DestAsset)
	if err != nil {
		return nil, fmt.Errorf("拉取订单簿失败: %w", err)
	}

	bids := pricing.NormalizeBook(book).Bids
	if len(bids) == 0 {
		return nil, nil
	}
	spot := bids[0].Price

	q := quote.Quote{
		Source:      quote.SourceOrderBook,
		Direction:   req.Direction,
		SourceAsset: req.SourceAsset,
		DestAsset:   req.DestAsset,
	}

	var walked pricing.Walked
	switch req.Direction {
	case quote.DirectionReceive:
		walked = pricing.WalkReceive(bids, req.Amount)
		if !walked.Filled {
			return nil, insufficient(len(bids))
		}
		q.SourceAmount = walked.Amount
		q.DestAmount = req.Amount
	default:
		walked = pricing.Walk(bids, req.Amount)
		if !walked.Filled {
			return nil, insufficient(len(bids))
		}
		q.SourceAmount = req.Amount
		q.DestAmount = walked.Amount
	}
	// 降序遍历时均价不高于现价，冲击取偏离幅度
	q.PriceImpactPct = pricing.Impact(walked.Fills, spot, walked.SourceFilled()).Abs()
	q.FeeEstimate = decimal.Zero

	return []quote.Quote{q}, nil
}

// poolQuotes 对所有可用池子定价，保留最优的一个 AMM 报价。
func (a *Aggregator) poolQuotes(ctx context.Context, req quote.QuoteRequest) ([]quote.Quote, error) {
	pools, err := a.pools.FetchPools(ctx, req.SourceAsset, req.DestAsset)
	if err != nil {
		return nil, fmt.Errorf("拉取流动性池失败: %w", err)
	}

	var (
		best  quote.Quote
		found bool
	)
	for _, pool := range pools {
		if !pool.Usable() {
			a.logger.Debug("排除储备为空的流动性池", zap.String("pool_id", pool.ID))
			continue
		}

		var (
			q  quote.Quote
			ok bool
		)
		if req.Direction == quote.DirectionReceive {
			q, ok = pricing.PriceReceive(pool, req.SourceAsset, req.Amount)
		} else {
			q, ok = pricing.Price(pool, req.SourceAsset, req.Amount)
		}
		if !ok || !q.DestAsset.Equal(req.DestAsset) {
			continue
		}

		if !found || compare(q, best, req.Direction) < 0 {
			best, found = q, true
		}
	}

	if !found {
		return nil, nil
	}
	return []quote.Quote{best}, nil
}

func insufficient(levels int) error {
	return &quote.SourceError{
		Source: quote.SourceOrderBook,
		Kind:   quote.KindInsufficientLiquidity,
		Err:    fmt.Errorf("订单簿 %d 档深度不足以成交", levels),
	}
}
