package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "exec"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
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
		if errors.As(err, &notFound) {
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("engine.tick_interval", "1s")
	v.SetDefault("engine.max_workers", 8)
	v.SetDefault("engine.step_timeout", "800ms")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.min_delay", "5s")
	v.SetDefault("retry.max_delay", "40s")

	v.SetDefault("cost.commission_rate", "0.001")
	v.SetDefault("cost.min_commission", "1.00")
	v.SetDefault("cost.tax_rate", "0.001")
	v.SetDefault("cost.regulatory_rate", "0.0000229")
	v.SetDefault("cost.impact_coefficient", "0.1")
	v.SetDefault("cost.average_daily_volume", "1000000")

	v.SetDefault("market.source", "sim")
	v.SetDefault("market.default_price", "100.00")
	v.SetDefault("market.default_volume", "10000")
	v.SetDefault("market.sim.seed", 0)
	v.SetDefault("market.sim.drift", 0.0)
	v.SetDefault("market.sim.volatility", 0.002)
	v.SetDefault("market.live.exchange", "binance")
	v.SetDefault("market.live.use_sandbox", false)
	v.SetDefault("market.live.candle_limit", 30)

	v.SetDefault("venues", []map[string]interface{}{
		{"name": "PRIMARY", "price_adjust_bps": 0, "default": true},
	})

	v.SetDefault("database.path", "data/exec_engine.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})

	v.SetDefault("monitor.port", 8391)
	v.SetDefault("monitor.enabled", true)
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
