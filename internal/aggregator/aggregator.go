// Package aggregator 并发查询路径、订单簿与 AMM 三个流动性来源并合并排序报价。
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/pathfind"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

const defaultBranchTimeout = 8 * time.Second

// BookFetcher 拉取资产对的订单簿快照。
type BookFetcher interface {
	FetchOrderBook(ctx context.Context, source, dest quote.Asset) (quote.BookSnapshot, error)
}

// PoolFetcher 拉取包含资产对的流动性池快照。
type PoolFetcher interface {
	FetchPools(ctx context.Context, source, dest quote.Asset) ([]quote.PoolSnapshot, error)
}

// Ledger 为账本查询协作方需要提供的全部能力。
type Ledger interface {
	pathfind.PathFinder
	BookFetcher
	PoolFetcher
}

// Options 控制聚合行为。
type Options struct {
	// BranchTimeout 为单个来源的超时，超时等同于无结果。
	BranchTimeout time.Duration
	// MaxQuotes 限制返回数量，0 表示不限制。
	MaxQuotes int
}

// BranchResult 为单个来源分支的显式结果。
type BranchResult struct {
	Source  quote.Source
	Quotes  []quote.Quote
	Err     *quote.SourceError
	Elapsed time.Duration
}

// Report 汇总一次聚合，交给观测方。
type Report struct {
	AggregationID string
	Request       quote.QuoteRequest
	Branches      []BranchResult
	Quotes        int
	Elapsed       time.Duration
}

// Reporter 接收聚合报告，例如指标与监控事件。
type Reporter interface {
	Report(ctx context.Context, report Report)
}

// Aggregator 负责扇出查询与结果合并，本身不持有任何可变共享状态。
type Aggregator struct {
	paths     *pathfind.Adapter
	books     BookFetcher
	pools     PoolFetcher
	opts      Options
	logger    *zap.Logger
	reporters []Reporter
}

type branch struct {
	source quote.Source
	run    func(ctx context.Context, req quote.QuoteRequest) ([]quote.Quote, error)
}

// New 创建聚合器。
func New(ledger Ledger, opts Options, logger *zap.Logger, reporters ...Reporter) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BranchTimeout <= 0 {
		opts.BranchTimeout = defaultBranchTimeout
	}

	return &Aggregator{
		paths:     pathfind.NewAdapter(ledger, logger),
		books:     ledger,
		pools:     ledger,
		opts:      opts,
		logger:    logger,
		reporters: reporters,
	}
}

// Aggregate 校验请求后并发查询三个来源，返回排序后的报价（可能为空）。
// 只有请求校验失败会返回错误；单个来源的失败、超时或无结果均在内部消化。
func (a *Aggregator) Aggregate(ctx context.Context, req quote.QuoteRequest) ([]quote.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	aggregationID := uuid.NewString()
	logger := a.logger.With(
		zap.String("aggregation_id", aggregationID),
		zap.String("source_asset", req.SourceAsset.String()),
		zap.String("dest_asset", req.DestAsset.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("direction", string(req.Direction)),
	)

	branches := []branch{
		{source: quote.SourcePath, run: a.paths.Quotes},
		{source: quote.SourceOrderBook, run: a.orderBookQuotes},
		{source: quote.SourceAMM, run: a.poolQuotes},
	}

	// 每个分支只写自己的槽位，合并顺序与完成顺序无关
	results := make([]BranchResult, len(branches))
	var group errgroup.Group
	for i, b := range branches {
		i, b := i, b
		group.Go(func() error {
			results[i] = a.runBranch(ctx, b, req)
			return nil
		})
	}
	_ = group.Wait()

	merged := make([]quote.Quote, 0, len(branches))
	for _, result := range results {
		if result.Err != nil {
			logger.Info("来源未产生报价",
				zap.String("source", string(result.Source)),
				zap.String("reason", string(result.Err.Kind)),
				zap.Duration("elapsed", result.Elapsed),
				zap.NamedError("cause", result.Err.Err),
			)
			continue
		}
		for _, q := range result.Quotes {
			if !q.Surfaceable() {
				logger.Debug("丢弃零数量报价", zap.String("source", string(q.Source)))
				continue
			}
			merged = append(merged, q)
		}
	}

	Rank(merged, req.Direction)
	if a.opts.MaxQuotes > 0 && len(merged) > a.opts.MaxQuotes {
		merged = merged[:a.opts.MaxQuotes]
	}

	elapsed := time.Since(start)
	if len(merged) == 0 {
		logger.Info("未找到可用路由", zap.Duration("elapsed", elapsed))
	} else {
		logger.Debug("报价聚合完成",
			zap.Int("quotes", len(merged)),
			zap.String("best_source", string(merged[0].Source)),
			zap.Duration("elapsed", elapsed),
		)
	}

	report := Report{
		AggregationID: aggregationID,
		Request:       req,
		Branches:      results,
		Quotes:        len(merged),
		Elapsed:       elapsed,
	}
	for _, reporter := range a.reporters {
		reporter.Report(ctx, report)
	}

	return merged, nil
}

type outcome struct {
	quotes []quote.Quote
	err    error
}

// runBranch 在独立超时内执行分支；即使协作方忽略 ctx，也会在超时后返回。
func (a *Aggregator) runBranch(ctx context.Context, b branch, req quote.QuoteRequest) BranchResult {
	branchCtx, cancel := context.WithTimeout(ctx, a.opts.BranchTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("分支 panic: %v", r)}
			}
		}()
		quotes, err := b.run(branchCtx, req)
		done <- outcome{quotes: quotes, err: err}
	}()

	result := settle(branchCtx, b.source, done)
	result.Elapsed = time.Since(start)
	return result
}

// settle 等待分支结果或超时。两者同时就绪时 select 随机选择，已完成的结果优先。
func settle(ctx context.Context, source quote.Source, done <-chan outcome) BranchResult {
	result := BranchResult{Source: source}
	select {
	case out := <-done:
		result.Quotes = out.quotes
		result.Err = classify(source, out.quotes, out.err)
	case <-ctx.Done():
		select {
		case out := <-done:
			result.Quotes = out.quotes
			result.Err = classify(source, out.quotes, out.err)
		default:
			result.Err = &quote.SourceError{Source: source, Kind: quote.KindUnavailable, Err: ctx.Err()}
		}
	}

	if result.Err != nil {
		result.Quotes = nil
	}
	return result
}

func classify(source quote.Source, quotes []quote.Quote, err error) *quote.SourceError {
	if err != nil {
		var srcErr *quote.SourceError
		if errors.As(err, &srcErr) {
			return srcErr
		}
		return &quote.SourceError{Source: source, Kind: quote.KindUnavailable, Err: err}
	}
	if len(quotes) == 0 {
		return &quote.SourceError{Source: source, Kind: quote.KindNoCandidates}
	}
	return nil
}
