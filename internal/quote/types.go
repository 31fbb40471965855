package quote

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Source 标识报价来源。
type Source string

const (
	SourcePath      Source = "PATH"
	SourceOrderBook Source = "ORDERBOOK"
	SourceAMM       Source = "AMM"
)

// Priority 返回同价时的排序优先级，数值越小越靠前。
func (s Source) Priority() int {
	switch s {
	case SourcePath:
		return 0
	case SourceAMM:
		return 1
	case SourceOrderBook:
		return 2
	default:
		return 3
	}
}

// Direction 表示请求方向。
type Direction string

const (
	// DirectionSend 固定源数量，求可得目标数量。
	DirectionSend Direction = "SEND"
	// DirectionReceive 固定目标数量，求所需源数量。
	DirectionReceive Direction = "RECEIVE"
)

// ParseDirection 解析方向，空值视为 SEND。
func ParseDirection(value string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", string(DirectionSend):
		return DirectionSend, nil
	case string(DirectionReceive):
		return DirectionReceive, nil
	default:
		return "", fmt.Errorf("未知方向 %q", value)
	}
}

// OrderBookLevel 为盘口档位，Price 为每单位源资产可换得的目标资产，Amount 以源资产计。
type OrderBookLevel struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// BookSnapshot 为订单簿快照，Asks 价格升序，Bids 价格降序。
type BookSnapshot struct {
	Asks []OrderBookLevel
	Bids []OrderBookLevel
}

// PoolSnapshot 为单个恒定乘积流动性池的快照。
type PoolSnapshot struct {
	ID       string
	AssetA   Asset
	AssetB   Asset
	ReserveA decimal.Decimal
	ReserveB decimal.Decimal
	FeeBps   int
}

// Usable 两侧储备均为正时池子才可用于定价。
func (p PoolSnapshot) Usable() bool {
	return p.ReserveA.IsPositive() && p.ReserveB.IsPositive()
}

// PathRecord 为路径搜索返回的原始记录，Path 仅包含中间资产。
type PathRecord struct {
	SourceAsset  Asset
	SourceAmount decimal.Decimal
	DestAsset    Asset
	DestAmount   decimal.Decimal
	Path         []Asset
}

// Quote 为归一化后的报价，生成后不再修改。
type Quote struct {
	Source         Source          `json:"source"`
	Direction      Direction       `json:"direction"`
	SourceAsset    Asset           `json:"sourceAsset"`
	DestAsset      Asset           `json:"destAsset"`
	SourceAmount   decimal.Decimal `json:"sourceAmount"`
	DestAmount     decimal.Decimal `json:"destAmount"`
	Path           []Asset         `json:"path"`
	PriceImpactPct decimal.Decimal `json:"priceImpactPct"`
	FeeEstimate    decimal.Decimal `json:"feeEstimate"`
}

// Surfaceable 判断报价能否返回给调用方。
func (q Quote) Surfaceable() bool {
	return q.DestAmount.IsPositive() && q.SourceAmount.IsPositive()
}
