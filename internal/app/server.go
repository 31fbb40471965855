package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/execution"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/monitor"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

const (
	requestBodyLimit = 64 << 10
	defaultEventList = 200
	maxEventList     = 1000
	statusOK         = "ok"
	statusNoRoute    = "no_route"
	statusDegraded   = "degraded"
	healthTimeout    = 2 * time.Second
)

// QuoteService 为报价聚合能力。
type QuoteService interface {
	Aggregate(ctx context.Context, req quote.QuoteRequest) ([]quote.Quote, error)
}

// EventLister 为监控事件查询能力。
type EventLister interface {
	ListEvents(ctx context.Context, eventType monitor.EventType, limit int) ([]monitor.Event, error)
}

// PlanObserver 接收计划构建结果。
type PlanObserver interface {
	ObservePlan(err error)
}

// RejectionRecorder 记录被拒绝的计划构建。
type RejectionRecorder interface {
	RecordPlanRejected(ctx context.Context, chosen quote.Quote, slippageBps int, cause error)
}

// Pinger 为健康检查时探测的依赖，例如事件数据库。
type Pinger interface {
	Ping(ctx context.Context) error
}

// handlerDeps 为路由所需依赖，可选项为 nil 时对应功能关闭。
type handlerDeps struct {
	quotes           QuoteService
	planner          execution.Planner
	events           EventLister
	planObserver     PlanObserver
	rejections       RejectionRecorder
	database         Pinger
	metrics          http.Handler
	instrument       func(http.Handler) http.Handler
	aggregateTimeout time.Duration
	logger           *zap.Logger
}

type handlers struct {
	deps handlerDeps
}

func newRouter(deps handlerDeps) http.Handler {
	if deps.logger == nil {
		deps.logger = zap.NewNop()
	}
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if deps.instrument != nil {
		r.Use(deps.instrument)
	}

	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/quotes", h.quotes)
		r.Post("/plans", h.plans)
	})
	if deps.events != nil {
		r.Get("/events", h.listEvents)
	}
	if deps.metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.metrics)
	}

	return r
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.deps.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.deps.database.Ping(ctx); err != nil {
			h.deps.logger.Warn("数据库健康检查失败", zap.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": statusDegraded})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": statusOK})
}

func (h *handlers) quotes(w http.ResponseWriter, r *http.Request) {
	var body quoteRequestBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", quote.ErrInvalidRequest, err))
		return
	}

	req, err := body.toRequest()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	if h.deps.aggregateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.deps.aggregateTimeout)
		defer cancel()
	}

	quotes, err := h.deps.quotes.Aggregate(ctx, req)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	resp := quotesResponse{Status: statusOK, Quotes: make([]quoteView, 0, len(quotes))}
	if len(quotes) == 0 {
		resp.Status = statusNoRoute
		resp.Reason = quote.ErrNoRouteFound.Error()
	}
	for _, q := range quotes {
		resp.Quotes = append(resp.Quotes, newQuoteView(q))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) plans(w http.ResponseWriter, r *http.Request) {
	var body planRequestBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", quote.ErrInvalidQuote, err))
		return
	}
	if body.SlippageBps == nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: 缺少 slippageBps", quote.ErrInvalidSlippage))
		return
	}

	chosen, err := body.Quote.toQuote()
	if err == nil {
		var plan execution.UnsignedExecutionPlan
		plan, err = h.deps.planner.Build(chosen, *body.SlippageBps)
		if err == nil {
			h.observePlan(nil)
			h.writeJSON(w, http.StatusOK, newPlanView(plan))
			return
		}
	}

	h.observePlan(err)
	if h.deps.rejections != nil {
		h.deps.rejections.RecordPlanRejected(r.Context(), chosen, *body.SlippageBps, err)
	}
	h.writeError(w, statusFor(err), err)
}

func (h *handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultEventList
	if qs := q.Get("limit"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			limit = min(v, maxEventList)
		}
	}

	eventType := monitor.EventType("")
	if typ := strings.TrimSpace(q.Get("type")); typ != "" {
		eventType = monitor.EventType(strings.ToLower(typ))
	}

	events, err := h.deps.events.ListEvents(r.Context(), eventType, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

func (h *handlers) observePlan(err error) {
	if h.deps.planObserver != nil {
		h.deps.planObserver.ObservePlan(err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, quote.ErrInvalidRequest),
		errors.Is(err, quote.ErrInvalidSlippage),
		errors.Is(err, quote.ErrInvalidQuote):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, out any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, requestBodyLimit))
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("请求体解析失败: %w", err)
	}
	return nil
}

func (h *handlers) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.deps.logger.Error("请求处理失败", zap.Int("status", status), zap.Error(err))
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.deps.logger.Warn("写入响应失败", zap.Error(err))
	}
}
