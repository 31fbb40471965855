package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/aggregator"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/store"
)

const defaultListLimit = 100

var schema = []string{
	`CREATE TABLE IF NOT EXISTS monitor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type)`,
	`CREATE INDEX IF NOT EXISTS idx_monitor_events_created ON monitor_events(created_at_ms)`,
}

// Service 负责持久化排除、无路由与计划拒绝事件。报价本身不会落库。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ aggregator.Reporter = (*Service)(nil)

// NewService 初始化监控服务，创建所需表结构。
func NewService(ctx context.Context, store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := store.Migrate(ctx, schema...); err != nil {
		return nil, fmt.Errorf("monitor: 初始化表失败: %w", err)
	}

	return &Service{
		db:     store.DB(),
		logger: logger,
	}, nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (event_type, payload, created_at_ms) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// Report 记录被排除的来源；没有任何报价时额外记录一条无路由事件。
// 请求可能已经结束，因此写入不跟随调用方取消。
func (s *Service) Report(ctx context.Context, report aggregator.Report) {
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()
	info := requestInfo(report.Request)

	for _, branch := range report.Branches {
		if branch.Err == nil {
			continue
		}
		payload := SourceExcludedPayload{
			AggregationID: report.AggregationID,
			Source:        string(branch.Source),
			Reason:        string(branch.Err.Kind),
			ElapsedMs:     branch.Elapsed.Milliseconds(),
			Request:       info,
		}
		if branch.Err.Err != nil {
			payload.Cause = branch.Err.Err.Error()
		}
		if err := s.Record(ctx, Event{Type: EventSourceExcluded, Timestamp: now, Payload: payload}); err != nil {
			s.logger.Warn("记录来源排除事件失败", zap.Error(err))
		}
	}

	if report.Quotes > 0 {
		return
	}
	if err := s.Record(ctx, Event{
		Type:      EventNoRoute,
		Timestamp: now,
		Payload: NoRoutePayload{
			AggregationID: report.AggregationID,
			Request:       info,
			ElapsedMs:     report.Elapsed.Milliseconds(),
		},
	}); err != nil {
		s.logger.Warn("记录无路由事件失败", zap.Error(err))
	}
}

// RecordPlanRejected 记录计划构建失败。
func (s *Service) RecordPlanRejected(ctx context.Context, chosen quote.Quote, slippageBps int, cause error) {
	payload := PlanRejectedPayload{
		QuoteSource: string(chosen.Source),
		Direction:   string(chosen.Direction),
		SourceAsset: chosen.SourceAsset.String(),
		DestAsset:   chosen.DestAsset.String(),
		SlippageBps: slippageBps,
	}
	if cause != nil {
		payload.Reason = cause.Error()
	}
	if err := s.Record(context.WithoutCancel(ctx), Event{
		Type:      EventPlanRejected,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}); err != nil {
		s.logger.Warn("记录计划拒绝事件失败", zap.Error(err))
	}
}

// ListEvents 按类型检索最近事件，eventType 为空时返回全部类型。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, event_type, payload, created_at_ms FROM monitor_events`
	args := make([]any, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			id        int64
			typ       string
			payload   string
			createdMs int64
		)
		if scanErr := rows.Scan(&id, &typ, &payload, &createdMs); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		events = append(events, Event{
			ID:        id,
			Type:      EventType(typ),
			Timestamp: time.UnixMilli(createdMs).UTC(),
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}

// Prune 删除早于 before 的事件，返回删除条数。
func (s *Service) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM monitor_events WHERE created_at_ms < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("monitor: 清理事件失败: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("monitor: 读取清理结果失败: %w", err)
	}
	return deleted, nil
}

func requestInfo(req quote.QuoteRequest) RequestInfo {
	return RequestInfo{
		SourceAsset: req.SourceAsset.String(),
		DestAsset:   req.DestAsset.String(),
		Amount:      req.Amount.String(),
		Direction:   string(req.Direction),
	}
}
