package quote

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest 表示请求参数非法，在任何 I/O 之前拒绝。
	ErrInvalidRequest = errors.New("invalid quote request")
	// ErrInvalidSlippage 表示滑点参数越界。
	ErrInvalidSlippage = errors.New("invalid slippage")
	// ErrInvalidQuote 表示提交构建的报价本身不合法。
	ErrInvalidQuote = errors.New("invalid quote")
	// ErrNoRouteFound 仅用于调用方分类：聚合结果为空，作为 no_route 响应的原因返回。
	ErrNoRouteFound = errors.New("no route found")
)

// SourceErrorKind 描述单个来源被排除的原因。
type SourceErrorKind string

const (
	KindUnavailable           SourceErrorKind = "source_unavailable"
	KindInsufficientLiquidity SourceErrorKind = "insufficient_liquidity"
	KindNoCandidates          SourceErrorKind = "no_candidates"
)

// SourceError 为单个分支的失败结果，只用于观测，不会返回给调用方。
type SourceError struct {
	Source Source
	Kind   SourceErrorKind
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
