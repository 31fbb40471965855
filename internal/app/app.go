package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/aggregator"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/config"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/execution"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/ledger"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/metrics"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/monitor"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/store"
)

var _ aggregator.Ledger = (*ledger.Client)(nil)

// App 聚合核心依赖并驱动服务生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例，store 可为 nil（关闭监控时）。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 启动 HTTP 服务与事件清理循环，直到 ctx 结束。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("报价服务初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("horizon", a.cfg.Ledger.HorizonURL),
		zap.Duration("branch_timeout", a.cfg.Engine.BranchTimeout),
	)

	client, err := ledger.NewClient(a.cfg.Ledger, a.logger)
	if err != nil {
		return err
	}

	deps := handlerDeps{
		planner: execution.NewBuilder(execution.Options{
			SlippageCeilingBps: a.cfg.Execution.MaxSlippageBps,
			ExpiresAfter:       a.cfg.Execution.ExpiresAfter,
		}, a.logger),
		aggregateTimeout: a.cfg.Engine.AggregateTimeout,
		logger:           a.logger,
	}

	var reporters []aggregator.Reporter
	if a.cfg.Metrics.Enabled {
		collector := metrics.NewCollector(a.cfg.Metrics.Namespace)
		reporters = append(reporters, collector)
		deps.planObserver = collector
		deps.metrics = collector.Handler()
		deps.instrument = collector.Middleware
	}

	var monitorSvc *monitor.Service
	if a.cfg.Monitor.Enabled {
		if a.store == nil {
			return errors.New("启用监控需要数据库")
		}
		monitorSvc, err = monitor.NewService(ctx, a.store, a.logger)
		if err != nil {
			return err
		}
		reporters = append(reporters, monitorSvc)
		deps.events = monitorSvc
		deps.rejections = monitorSvc
		deps.database = a.store
	}

	deps.quotes = aggregator.New(client, aggregator.Options{
		BranchTimeout: a.cfg.Engine.BranchTimeout,
		MaxQuotes:     a.cfg.Engine.MaxQuotes,
	}, a.logger, reporters...)

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      newRouter(deps),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	a.logger.Info("HTTP 接口已启动", zap.String("addr", a.cfg.Server.Addr))

	var pruneTick <-chan time.Time
	if monitorSvc != nil {
		ticker := time.NewTicker(a.cfg.Monitor.PruneInterval)
		defer ticker.Stop()
		pruneTick = ticker.C
		a.prune(ctx, monitorSvc)
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("服务收到退出信号，正在停止")
			return a.shutdown(srv)
		case err, ok := <-serveErr:
			if ok && err != nil {
				return fmt.Errorf("HTTP 服务异常: %w", err)
			}
			return nil
		case <-pruneTick:
			a.prune(ctx, monitorSvc)
		}
	}
}

func (a *App) prune(ctx context.Context, svc *monitor.Service) {
	before := time.Now().UTC().Add(-a.cfg.Monitor.Retention)
	deleted, err := svc.Prune(ctx, before)
	if err != nil {
		a.logger.Warn("清理监控事件失败", zap.Error(err))
		return
	}
	if deleted > 0 {
		a.logger.Debug("已清理过期监控事件", zap.Int64("deleted", deleted))
	}
}

func (a *App) shutdown(srv *http.Server) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭 HTTP 服务失败: %w", err)
	}
	return nil
}
