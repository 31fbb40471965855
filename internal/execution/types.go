package execution

import (
	"github.com/shopspring/decimal"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

// Operation 表示下游签名方需要构造的支付操作类型。
type Operation string

const (
	OperationStrictSend    Operation = "path_payment_strict_send"
	OperationStrictReceive Operation = "path_payment_strict_receive"
)

// UnsignedExecutionPlan 为未签名的执行计划，仅描述支付指令，不负责签名与广播。
type UnsignedExecutionPlan struct {
	ID          string       `json:"id"`
	Operation   Operation    `json:"operation"`
	QuoteSource quote.Source `json:"quoteSource"`
	SourceAsset quote.Asset  `json:"sourceAsset"`
	DestAsset   quote.Asset  `json:"destAsset"`
	// SourceAmount 为 strict send 的发送数量；strict receive 下为报价成本。
	SourceAmount decimal.Decimal `json:"sourceAmount"`
	DestAmount   decimal.Decimal `json:"destAmount"`
	DestMin      decimal.Decimal `json:"destMin"`
	// SendMax 仅 strict receive 计划有值。
	SendMax             decimal.NullDecimal `json:"sendMax"`
	Path                []quote.Asset       `json:"path"`
	SlippageBps         int                 `json:"slippageBps"`
	ExpiresAfterSeconds int                 `json:"expiresAfterSeconds"`
}

// Direct 路径为空时为两资产直连指令。
func (p UnsignedExecutionPlan) Direct() bool {
	return len(p.Path) == 0
}
