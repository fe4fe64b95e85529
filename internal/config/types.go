package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Cost       CostConfig       `mapstructure:"cost"`
	Market     MarketConfig     `mapstructure:"market"`
	Venues     []VenueConfig    `mapstructure:"venues"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// EngineConfig 控制调度器节奏与并发度。
type EngineConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	MaxWorkers   int           `mapstructure:"max_workers"`
	StepTimeout  time.Duration `mapstructure:"step_timeout"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// CostConfig 描述成本模型参数，数值以十进制字符串表示以避免浮点误差。
type CostConfig struct {
	CommissionRate     string `mapstructure:"commission_rate"`
	MinCommission      string `mapstructure:"min_commission"`
	TaxRate            string `mapstructure:"tax_rate"`
	RegulatoryRate     string `mapstructure:"regulatory_rate"`
	ImpactCoefficient  string `mapstructure:"impact_coefficient"`
	AverageDailyVolume string `mapstructure:"average_daily_volume"`
}

// MarketConfig 描述行情数据来源。
type MarketConfig struct {
	Source        string           `mapstructure:"source"` // sim | live
	DefaultPrice  string           `mapstructure:"default_price"`
	DefaultVolume string           `mapstructure:"default_volume"`
	Sim           SimMarketConfig  `mapstructure:"sim"`
	Live          LiveMarketConfig `mapstructure:"live"`
}

// SimMarketConfig 控制随机游走模拟行情。
type SimMarketConfig struct {
	Seed       int64   `mapstructure:"seed"`
	Drift      float64 `mapstructure:"drift"`
	Volatility float64 `mapstructure:"volatility"`
}

// LiveMarketConfig 描述真实交易所行情接入。
type LiveMarketConfig struct {
	Exchange    string `mapstructure:"exchange"`
	APIKey      string `mapstructure:"api_key"`
	APISecret   string `mapstructure:"api_secret"`
	UseSandbox  bool   `mapstructure:"use_sandbox"`
	CandleLimit int    `mapstructure:"candle_limit"`
}

// VenueConfig 描述 SOR 可选执行场所。
type VenueConfig struct {
	Name           string `mapstructure:"name"`
	PriceAdjustBps int    `mapstructure:"price_adjust_bps"`
	Default        bool   `mapstructure:"default"`
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

// MonitorConfig 控制监控读取接口。
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// SimulationConfig 定义启动时注入的演示订单。
type SimulationConfig struct {
	Orders []SimOrderConfig `mapstructure:"orders"`
}

// SimOrderConfig 描述单个演示订单。
type SimOrderConfig struct {
	ID                string  `mapstructure:"id"`
	Symbol            string  `mapstructure:"symbol"`
	Side              string  `mapstructure:"side"`
	Type              string  `mapstructure:"type"`
	Algorithm         string  `mapstructure:"algorithm"`
	Quantity          string  `mapstructure:"quantity"`
	LimitPrice        string  `mapstructure:"limit_price"`
	ParticipationRate string  `mapstructure:"participation_rate"`
	Urgency           float64 `mapstructure:"urgency"`
	MinOrderSize      string  `mapstructure:"min_order_size"`
	MaxOrderSize      string  `mapstructure:"max_order_size"`
	HorizonMinutes    int     `mapstructure:"horizon_minutes"`
	TWAPSlices        int     `mapstructure:"twap_slices"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Engine.TickInterval <= 0 {
		err = multierr.Append(err, errors.New("engine.tick_interval 必须大于0"))
	}
	if c.Engine.MaxWorkers <= 0 {
		err = multierr.Append(err, errors.New("engine.max_workers 必须大于0"))
	}
	if c.Engine.StepTimeout < 0 {
		err = multierr.Append(err, errors.New("engine.step_timeout 不能为负"))
	}
	if c.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("retry.max_attempts 必须大于0"))
	}
	if c.Retry.MinDelay <= 0 || c.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("retry.delay 必须为正"))
	}
	if c.Retry.MinDelay > c.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("retry.min_delay 不能大于 max_delay"))
	}
	if c.Cost.CommissionRate == "" {
		err = multierr.Append(err, errors.New("cost.commission_rate 不能为空"))
	}
	if c.Cost.MinCommission == "" {
		err = multierr.Append(err, errors.New("cost.min_commission 不能为空"))
	}
	if c.Cost.AverageDailyVolume == "" {
		err = multierr.Append(err, errors.New("cost.average_daily_volume 不能为空"))
	}
	switch c.Market.Source {
	case "sim", "live":
	default:
		err = multierr.Append(err, fmt.Errorf("market.source 取值非法: %q", c.Market.Source))
	}
	if c.Market.DefaultPrice == "" || c.Market.DefaultVolume == "" {
		err = multierr.Append(err, errors.New("market.default_price 与 default_volume 不能为空"))
	}
	if c.Market.Source == "live" && c.Market.Live.Exchange == "" {
		err = multierr.Append(err, errors.New("market.live.exchange 不能为空"))
	}
	if len(c.Venues) == 0 {
		err = multierr.Append(err, errors.New("venues 至少需要一个执行场所"))
	} else {
		defaults := 0
		for i, venue := range c.Venues {
			if venue.Name == "" {
				err = multierr.Append(err, fmt.Errorf("venues[%d].name 不能为空", i))
			}
			if venue.Default {
				defaults++
			}
		}
		if defaults != 1 {
			err = multierr.Append(err, errors.New("venues 必须恰好指定一个默认场所"))
		}
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
	if c.Monitor.Enabled && (c.Monitor.Port <= 0 || c.Monitor.Port > 65535) {
		err = multierr.Append(err, errors.New("monitor.port 必须位于(0,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}
