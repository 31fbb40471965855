// Package pathfind 将账本路径搜索结果包装为统一的 PATH 报价。
package pathfind

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/pricing"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

// PathFinder 为外部路径搜索能力。
type PathFinder interface {
	FindPaths(ctx context.Context, source, dest quote.Asset, amount decimal.Decimal, direction quote.Direction) ([]quote.PathRecord, error)
}

// Adapter 负责调用路径搜索并归一化结果。
type Adapter struct {
	finder PathFinder
	logger *zap.Logger
}

// NewAdapter 创建路径适配器。
func NewAdapter(finder PathFinder, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		finder: finder,
		logger: logger,
	}
}

// Quotes 返回 0..N 个 PATH 报价，顺序与路径搜索结果一致。
func (a *Adapter) Quotes(ctx context.Context, req quote.QuoteRequest) ([]quote.Quote, error) {
	records, err := a.finder.FindPaths(ctx, req.SourceAsset, req.DestAsset, req.Amount, req.Direction)
	if err != nil {
		return nil, fmt.Errorf("pathfind: 路径搜索失败: %w", err)
	}

	quotes := make([]quote.Quote, 0, len(records))
	for i, record := range records {
		q, ok := normalize(req, record)
		if !ok {
			a.logger.Debug("丢弃无效路径记录",
				zap.Int("index", i),
				zap.String("source_amount", record.SourceAmount.String()),
				zap.String("dest_amount", record.DestAmount.String()),
				zap.Int("hops", len(record.Path)),
			)
			continue
		}
		quotes = append(quotes, q)
	}

	return quotes, nil
}

func normalize(req quote.QuoteRequest, record quote.PathRecord) (quote.Quote, bool) {
	if !record.SourceAmount.IsPositive() || !record.DestAmount.IsPositive() {
		return quote.Quote{}, false
	}
	for _, hop := range record.Path {
		if hop.Equal(req.SourceAsset) || hop.Equal(req.DestAsset) {
			return quote.Quote{}, false
		}
	}

	sourceAmount := record.SourceAmount
	destAmount := record.DestAmount
	if req.Direction == quote.DirectionReceive {
		sourceAmount = pricing.RoundUp(sourceAmount)
		destAmount = req.Amount
	} else {
		sourceAmount = req.Amount
		destAmount = pricing.RoundDown(destAmount)
	}
	if !destAmount.IsPositive() {
		return quote.Quote{}, false
	}

	path := make([]quote.Asset, len(record.Path))
	copy(path, record.Path)

	return quote.Quote{
		Source:         quote.SourcePath,
		Direction:      req.Direction,
		SourceAsset:    req.SourceAsset,
		DestAsset:      req.DestAsset,
		SourceAmount:   sourceAmount,
		DestAmount:     destAmount,
		Path:           path,
		PriceImpactPct: decimal.Zero,
		FeeEstimate:    decimal.Zero,
	}, true
}
