package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了模拟交易大厅运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Market    MarketConfig    `mapstructure:"market"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Traders   []TraderConfig  `mapstructure:"traders"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// OpenAIConfig 描述大模型调用参数。
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MarketConfig 控制模拟行情源。
type MarketConfig struct {
	MinPrice   int `mapstructure:"min_price"`
	MaxPrice   int `mapstructure:"max_price"`
	CacheDates int `mapstructure:"cache_dates"`
}

// TradingConfig 控制账本层参数。
type TradingConfig struct {
	InitialBalance float64 `mapstructure:"initial_balance"`
	Spread         float64 `mapstructure:"spread"`
	MaxTurns       int     `mapstructure:"max_turns"`
}

// TraderConfig 描述单个交易员及其使用的模型。
type TraderConfig struct {
	Name  string `mapstructure:"name"`
	Model string `mapstructure:"model"`
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
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// SchedulerConfig 控制交易会话的节奏。
type SchedulerConfig struct {
	RunInterval time.Duration `mapstructure:"run_interval"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.OpenAI.APIKey == "" {
		err = multierr.Append(err, errors.New("openai.api_key 不能为空"))
	}
	if c.OpenAI.Timeout <= 0 {
		err = multierr.Append(err, errors.New("openai.timeout 必须大于0"))
	}
	if c.Market.MinPrice <= 0 {
		err = multierr.Append(err, errors.New("market.min_price 必须大于0"))
	}
	if c.Market.MaxPrice <= c.Market.MinPrice {
		err = multierr.Append(err, errors.New("market.max_price 必须大于 min_price"))
	}
	if c.Market.CacheDates <= 0 {
		err = multierr.Append(err, errors.New("market.cache_dates 必须大于0"))
	}
	if c.Trading.InitialBalance <= 0 {
		err = multierr.Append(err, errors.New("trading.initial_balance 必须大于0"))
	}
	if c.Trading.Spread < 0 || c.Trading.Spread > 0.2 {
		err = multierr.Append(err, errors.New("trading.spread 应位于[0,0.2]"))
	}
	if c.Trading.MaxTurns <= 0 {
		err = multierr.Append(err, errors.New("trading.max_turns 必须大于0"))
	}
	if len(c.Traders) == 0 {
		err = multierr.Append(err, errors.New("traders 至少配置一个交易员"))
	}
	seen := make(map[string]struct{}, len(c.Traders))
	for i, trader := range c.Traders {
		name := strings.ToLower(strings.TrimSpace(trader.Name))
		if name == "" {
			err = multierr.Append(err, fmt.Errorf("traders[%d].name 不能为空", i))
			continue
		}
		if trader.Model == "" {
			err = multierr.Append(err, fmt.Errorf("traders[%d].model 不能为空", i))
		}
		if _, ok := seen[name]; ok {
			err = multierr.Append(err, fmt.Errorf("traders 中存在重复名称: %s", name))
		}
		seen[name] = struct{}{}
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
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
	if c.Scheduler.RunInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.run_interval 必须大于0"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
