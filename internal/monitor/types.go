package monitor

import (
	"time"
)

// EventType 表示监控事件类型。
type EventType string

const (
	// EventSourceExcluded 某个流动性来源在一次聚合中未产生报价。
	EventSourceExcluded EventType = "source_excluded"
	// EventNoRoute 一次聚合没有任何可用报价。
	EventNoRoute EventType = "no_route"
	// EventPlanRejected 执行计划构建被拒绝。
	EventPlanRejected EventType = "plan_rejected"
)

// Event 封装通用监控事件。
type Event struct {
	ID        int64     `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// RequestInfo 为事件中记录的请求摘要。
type RequestInfo struct {
	SourceAsset string `json:"sourceAsset"`
	DestAsset   string `json:"destAsset"`
	Amount      string `json:"amount"`
	Direction   string `json:"direction"`
}

// SourceExcludedPayload 记录来源被排除的原因。
type SourceExcludedPayload struct {
	AggregationID string      `json:"aggregationId"`
	Source        string      `json:"source"`
	Reason        string      `json:"reason"`
	Cause         string      `json:"cause,omitempty"`
	ElapsedMs     int64       `json:"elapsedMs"`
	Request       RequestInfo `json:"request"`
}

// NoRoutePayload 记录无路由的请求。
type NoRoutePayload struct {
	AggregationID string      `json:"aggregationId"`
	Request       RequestInfo `json:"request"`
	ElapsedMs     int64       `json:"elapsedMs"`
}

// PlanRejectedPayload 记录被拒绝的计划构建。
type PlanRejectedPayload struct {
	QuoteSource string `json:"quoteSource"`
	Direction   string `json:"direction"`
	SourceAsset string `json:"sourceAsset"`
	DestAsset   string `json:"destAsset"`
	SlippageBps int    `json:"slippageBps"`
	Reason      string `json:"reason"`
}
