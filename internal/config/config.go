package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvFile    = ".env"
	envPrefix         = "swap"
)

// Load 读取配置文件并结合环境变量返回 Config。
// 工作目录下存在 .env 时先载入，已存在的环境变量不会被覆盖。
func Load(path string) (*Config, error) {
	if err := loadDotEnv(defaultEnvFile); err != nil {
		return nil, err
	}

	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "swapd")
	v.SetDefault("app.environment", "development")

	v.SetDefault("ledger.horizon_url", "https://horizon.stellar.org")
	v.SetDefault("ledger.timeout", "10s")
	v.SetDefault("ledger.requests_per_second", 10)
	v.SetDefault("ledger.burst", 5)
	v.SetDefault("ledger.order_book_depth", 50)
	v.SetDefault("ledger.pool_limit", 20)
	v.SetDefault("ledger.retry.max_attempts", 3)
	v.SetDefault("ledger.retry.min_delay", "200ms")
	v.SetDefault("ledger.retry.max_delay", "2s")

	v.SetDefault("engine.branch_timeout", "8s")
	v.SetDefault("engine.aggregate_timeout", "10s")
	v.SetDefault("engine.max_quotes", 0)

	v.SetDefault("execution.max_slippage_bps", 5000)
	v.SetDefault("execution.expires_after", "180s")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.retention", "24h")
	v.SetDefault("monitor.prune_interval", "10m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "swap")

	v.SetDefault("database.path", "data/swapd.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.max_size_mb", 100)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.max_age_days", 7)
	v.SetDefault("logging.file.compress", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
