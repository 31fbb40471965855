package execution

import "github.com/Chrissou78/stellar-wallet-sub000/internal/quote"

// Planner 抽象计划构建，便于上层替换实现。
type Planner interface {
	Build(chosen quote.Quote, slippageBps int) (UnsignedExecutionPlan, error)
}

var _ Planner = (*Builder)(nil)
