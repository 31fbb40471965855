// Package ledger 通过 Horizon REST 接口提供路径搜索、订单簿与流动性池查询。
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/config"
)

const maxResponseBytes = 4 << 20

// Client 负责与 Horizon 交互，内置客户端限流与重试。
type Client struct {
	cfg        config.LedgerConfig
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient 构造 Horizon 客户端。
func NewClient(cfg config.LedgerConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := url.Parse(strings.TrimRight(cfg.HorizonURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("horizon 地址无效: %q", cfg.HorizonURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.With(zap.String("component", "ledger")),
	}, nil
}

// getJSON 发起 GET 请求并将响应解码到 out，失败时按错误类型重试。
func (c *Client) getJSON(ctx context.Context, operation, endpoint string, params url.Values, out any) error {
	target := *c.baseURL
	target.Path = c.baseURL.Path + endpoint
	target.RawQuery = params.Encode()
	reqURL := target.String()

	return c.callWithRetry(ctx, operation, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("创建请求失败: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return decodeProblem(resp.StatusCode, body)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return nil
	})
}

func decodeProblem(status int, body []byte) error {
	statusErr := &StatusError{StatusCode: status, Title: http.StatusText(status)}
	var problem problemResponse
	if err := json.Unmarshal(body, &problem); err == nil {
		if problem.Title != "" {
			statusErr.Title = problem.Title
		}
		statusErr.Detail = problem.Detail
	}
	return statusErr
}

func (c *Client) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	maxAttempts := c.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	delay := c.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	maxDelay := c.cfg.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := fn()
		duration := time.Since(start)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("Horizon 调用重试后成功",
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", duration),
				)
			}
			return nil
		}

		normalizedErr, retry := c.classifyError(ctx, err)

		if !retry || attempt >= maxAttempts {
			c.logger.Warn("Horizon 调用失败",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", duration),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		c.logger.Debug("Horizon 调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(normalizedErr),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func (c *Client) classifyError(ctx context.Context, err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	if IsRetryable(err) {
		return err, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err, true
	}

	return err, false
}
