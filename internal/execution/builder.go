package execution

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/pricing"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

const (
	// MaxSlippageBps 为基点的绝对上限（100%）。
	MaxSlippageBps = 10000
	// DefaultSlippageCeiling 为默认允许的最大滑点，防止误设灾难性滑点。
	DefaultSlippageCeiling = 5000
	// DefaultExpiry 为计划默认有效期。
	DefaultExpiry = 180 * time.Second
	// MaxPathHops 为账本允许的最大中间资产数。
	MaxPathHops = 5
)

// Options 控制计划构建参数。
type Options struct {
	SlippageCeilingBps int
	ExpiresAfter       time.Duration
}

// Builder 将选定报价与滑点容忍度转换为未签名执行计划。
type Builder struct {
	opts   Options
	logger *zap.Logger
}

// NewBuilder 创建计划构建器，越界配置回落到默认值。
func NewBuilder(opts Options, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SlippageCeilingBps <= 0 || opts.SlippageCeilingBps > MaxSlippageBps {
		opts.SlippageCeilingBps = DefaultSlippageCeiling
	}
	if opts.ExpiresAfter <= 0 {
		opts.ExpiresAfter = DefaultExpiry
	}
	return &Builder{
		opts:   opts,
		logger: logger,
	}
}

// Build 计算滑点保护后的最小到账数量并生成计划。越界滑点直接拒绝，不做截断。
func (b *Builder) Build(chosen quote.Quote, slippageBps int) (UnsignedExecutionPlan, error) {
	if slippageBps < 0 || slippageBps > b.opts.SlippageCeilingBps {
		return UnsignedExecutionPlan{}, fmt.Errorf("%w: %d bps 超出 [0,%d]", quote.ErrInvalidSlippage, slippageBps, b.opts.SlippageCeilingBps)
	}
	if err := validateQuote(chosen); err != nil {
		return UnsignedExecutionPlan{}, err
	}

	plan := buildPlan(chosen, slippageBps)
	plan.ID = uuid.NewString()
	plan.ExpiresAfterSeconds = int(b.opts.ExpiresAfter / time.Second)

	b.logger.Debug("执行计划已生成",
		zap.String("plan_id", plan.ID),
		zap.String("operation", string(plan.Operation)),
		zap.String("quote_source", string(plan.QuoteSource)),
		zap.Int("slippage_bps", slippageBps),
		zap.String("dest_min", plan.DestMin.String()),
		zap.Int("hops", len(plan.Path)),
	)

	return plan, nil
}

func buildPlan(chosen quote.Quote, slippageBps int) UnsignedExecutionPlan {
	slippage := pricing.BpsFraction(slippageBps)
	one := decimal.NewFromInt(1)

	path := make([]quote.Asset, len(chosen.Path))
	copy(path, chosen.Path)

	plan := UnsignedExecutionPlan{
		Operation:    OperationStrictSend,
		QuoteSource:  chosen.Source,
		SourceAsset:  chosen.SourceAsset,
		DestAsset:    chosen.DestAsset,
		SourceAmount: chosen.SourceAmount,
		DestAmount:   chosen.DestAmount,
		DestMin:      pricing.RoundDown(chosen.DestAmount.Mul(one.Sub(slippage))),
		Path:         path,
		SlippageBps:  slippageBps,
	}

	if chosen.Direction == quote.DirectionReceive {
		plan.Operation = OperationStrictReceive
		plan.SendMax = decimal.NewNullDecimal(pricing.RoundUp(chosen.SourceAmount.Mul(one.Add(slippage))))
	}

	return plan
}

func validateQuote(chosen quote.Quote) error {
	switch {
	case !chosen.DestAmount.IsPositive():
		return fmt.Errorf("%w: 目标数量必须大于0", quote.ErrInvalidQuote)
	case !chosen.SourceAmount.IsPositive():
		return fmt.Errorf("%w: 源数量必须大于0", quote.ErrInvalidQuote)
	case chosen.SourceAsset.Equal(chosen.DestAsset):
		return fmt.Errorf("%w: 源资产与目标资产相同", quote.ErrInvalidQuote)
	case len(chosen.Path) > MaxPathHops:
		return fmt.Errorf("%w: 路径包含 %d 个中间资产，超过 %d", quote.ErrInvalidQuote, len(chosen.Path), MaxPathHops)
	}

	if !atLedgerPrecision(chosen.SourceAmount) || !atLedgerPrecision(chosen.DestAmount) {
		return fmt.Errorf("%w: 数量最多保留 %d 位小数", quote.ErrInvalidQuote, quote.LedgerPrecision)
	}
	if err := multierr.Combine(chosen.SourceAsset.Validate(), chosen.DestAsset.Validate()); err != nil {
		return fmt.Errorf("%w: %v", quote.ErrInvalidQuote, err)
	}
	return nil
}

func atLedgerPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(quote.LedgerPrecision))
}
