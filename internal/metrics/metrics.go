// Package metrics 以 Prometheus 指标暴露聚合分支结果、计划构建与 HTTP 请求情况。
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/aggregator"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

const (
	outcomeOK      = "ok"
	statusNoRoute  = "no_route"
	planBuilt      = "built"
	planRejected   = "rejected"
	defaultPrefix  = "swap"
	unmatchedRoute = "unmatched"
)

// Collector 持有独立的 Registry，避免与全局默认注册表冲突。
type Collector struct {
	registry       *prometheus.Registry
	branches       *prometheus.CounterVec
	branchDuration *prometheus.HistogramVec
	aggregations   *prometheus.CounterVec
	plans          *prometheus.CounterVec
	requests       *prometheus.CounterVec
	durations      *prometheus.HistogramVec
}

var _ aggregator.Reporter = (*Collector)(nil)

// NewCollector 创建并注册全部指标。
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = defaultPrefix
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		branches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "branch_results_total",
			Help:      "Liquidity source branch outcomes by source and outcome.",
		}, []string{"source", "outcome"}),
		branchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "branch_duration_seconds",
			Help:      "Time spent per liquidity source branch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregations_total",
			Help:      "Quote aggregations by direction and status.",
		}, []string{"direction", "status"}),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Execution plan builds by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	c.registry.MustRegister(c.branches, c.branchDuration, c.aggregations, c.plans, c.requests, c.durations)
	return c
}

// Report 记录一次聚合中每个分支的结果。
func (c *Collector) Report(_ context.Context, report aggregator.Report) {
	for _, branch := range report.Branches {
		outcome := outcomeOK
		if branch.Err != nil {
			outcome = string(branch.Err.Kind)
		}
		source := string(branch.Source)
		c.branches.WithLabelValues(source, outcome).Inc()
		c.branchDuration.WithLabelValues(source).Observe(branch.Elapsed.Seconds())
	}

	status := outcomeOK
	if report.Quotes == 0 {
		status = statusNoRoute
	}
	c.aggregations.WithLabelValues(string(report.Request.Direction), status).Inc()
}

// ObservePlan 记录计划构建结果，err 为 nil 视为成功。
func (c *Collector) ObservePlan(err error) {
	switch {
	case err == nil:
		c.plans.WithLabelValues(planBuilt).Inc()
	case errors.Is(err, quote.ErrInvalidSlippage):
		c.plans.WithLabelValues(planRejected + "_slippage").Inc()
	default:
		c.plans.WithLabelValues(planRejected + "_quote").Inc()
	}
}

// Middleware 统计 chi 路由模式维度的请求数与耗时。
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(recorder, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := recorder.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		c.durations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler 返回 /metrics 处理器。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
