package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了服务运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Server    ServerConfig    `mapstructure:"server"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// LedgerConfig 描述 Horizon 连接信息。
type LedgerConfig struct {
	HorizonURL        string        `mapstructure:"horizon_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	OrderBookDepth    int           `mapstructure:"order_book_depth"`
	PoolLimit         int           `mapstructure:"pool_limit"`
	Retry             RetryConfig   `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// EngineConfig 控制报价聚合。
type EngineConfig struct {
	BranchTimeout    time.Duration `mapstructure:"branch_timeout"`
	AggregateTimeout time.Duration `mapstructure:"aggregate_timeout"`
	MaxQuotes        int           `mapstructure:"max_quotes"`
}

// ExecutionConfig 控制执行计划构建。
type ExecutionConfig struct {
	MaxSlippageBps int           `mapstructure:"max_slippage_bps"`
	ExpiresAfter   time.Duration `mapstructure:"expires_after"`
}

// ServerConfig 控制 HTTP 服务。
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MonitorConfig 控制事件记录与清理。
type MonitorConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Retention     time.Duration `mapstructure:"retention"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// MetricsConfig 控制 Prometheus 指标。
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string        `mapstructure:"level"`
	Encoding         string        `mapstructure:"encoding"`
	Development      bool          `mapstructure:"development"`
	OutputPaths      []string      `mapstructure:"output_paths"`
	ErrorOutputPaths []string      `mapstructure:"error_output_paths"`
	File             LogFileConfig `mapstructure:"file"`
}

// LogFileConfig 控制滚动日志文件，Path 为空时不启用。
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Name == "" {
		err = multierr.Append(err, errors.New("app.name 不能为空"))
	}
	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if u, parseErr := url.Parse(c.Ledger.HorizonURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		err = multierr.Append(err, fmt.Errorf("ledger.horizon_url 无效: %q", c.Ledger.HorizonURL))
	}
	if c.Ledger.Timeout <= 0 {
		err = multierr.Append(err, errors.New("ledger.timeout 必须大于0"))
	}
	if c.Ledger.RequestsPerSecond <= 0 {
		err = multierr.Append(err, errors.New("ledger.requests_per_second 必须大于0"))
	}
	if c.Ledger.Burst <= 0 {
		err = multierr.Append(err, errors.New("ledger.burst 必须大于0"))
	}
	if c.Ledger.OrderBookDepth <= 0 || c.Ledger.OrderBookDepth > 200 {
		err = multierr.Append(err, errors.New("ledger.order_book_depth 必须位于(0,200]"))
	}
	if c.Ledger.PoolLimit <= 0 || c.Ledger.PoolLimit > 200 {
		err = multierr.Append(err, errors.New("ledger.pool_limit 必须位于(0,200]"))
	}
	if c.Ledger.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("ledger.retry.max_attempts 必须大于0"))
	}
	if c.Ledger.Retry.MinDelay <= 0 || c.Ledger.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("ledger.retry.delay 必须为正"))
	}
	if c.Ledger.Retry.MinDelay > c.Ledger.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("ledger.retry.min_delay 不能大于 max_delay"))
	}
	if c.Engine.BranchTimeout <= 0 {
		err = multierr.Append(err, errors.New("engine.branch_timeout 必须大于0"))
	}
	if c.Engine.AggregateTimeout < c.Engine.BranchTimeout {
		err = multierr.Append(err, errors.New("engine.aggregate_timeout 不应小于 branch_timeout"))
	}
	if c.Engine.MaxQuotes < 0 {
		err = multierr.Append(err, errors.New("engine.max_quotes 不能为负"))
	}
	if c.Execution.MaxSlippageBps <= 0 || c.Execution.MaxSlippageBps > 10000 {
		err = multierr.Append(err, errors.New("execution.max_slippage_bps 必须位于(0,10000]"))
	}
	if c.Execution.ExpiresAfter <= 0 {
		err = multierr.Append(err, errors.New("execution.expires_after 必须大于0"))
	}
	if c.Server.Addr == "" {
		err = multierr.Append(err, errors.New("server.addr 不能为空"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		err = multierr.Append(err, errors.New("server.shutdown_timeout 必须大于0"))
	}
	if c.Monitor.Enabled {
		if c.Monitor.Retention <= 0 {
			err = multierr.Append(err, errors.New("monitor.retention 必须大于0"))
		}
		if c.Monitor.PruneInterval <= 0 {
			err = multierr.Append(err, errors.New("monitor.prune_interval 必须大于0"))
		}
		if c.Database.Path == "" && !c.Database.InMemory {
			err = multierr.Append(err, errors.New("database.path 不能为空"))
		}
		if c.Database.MaxOpenConns <= 0 {
			err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
		}
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		err = multierr.Append(err, errors.New("metrics.namespace 不能为空"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Logging.File.Path != "" && c.Logging.File.MaxSizeMB <= 0 {
		err = multierr.Append(err, errors.New("logging.file.max_size_mb 必须大于0"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
