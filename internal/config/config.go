package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"swing-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Logging      logging.Config     `mapstructure:"logging"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Cooldown     CooldownConfig     `mapstructure:"cooldown"`
	AlphaVantage AlphaVantageConfig `mapstructure:"alphavantage"`
	ZoneFeed     ZoneFeedConfig     `mapstructure:"zone_feed"`
	Earnings     EarningsConfig     `mapstructure:"earnings"`
	Scan         ScanConfig         `mapstructure:"scan"`
	Alerting     AlertingConfig     `mapstructure:"alerting"`
	Export       ExportConfig       `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the alert audit
// trail. An empty DSN disables auditing.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig governs the time-series cache retention and freshness.
type CacheConfig struct {
	Dir             string        `mapstructure:"dir"`
	DailyMaxAge     time.Duration `mapstructure:"daily_max_age"`
	HourlyMaxAge    time.Duration `mapstructure:"hourly_max_age"`
	ZoneMaxAge      time.Duration `mapstructure:"zone_max_age"`
	DailyRetention  int           `mapstructure:"daily_retention"`
	HourlyRetention int           `mapstructure:"hourly_retention"`
}

// CooldownConfig governs alert de-duplication.
type CooldownConfig struct {
	Window    time.Duration `mapstructure:"window"`
	StateFile string        `mapstructure:"state_file"`
}

// AlphaVantageConfig covers market-data access.
type AlphaVantageConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	OutputSize     string        `mapstructure:"output_size"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// ZoneFeedConfig covers the zone-builder service.
type ZoneFeedConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AuthToken      string        `mapstructure:"auth_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EarningsConfig governs the earnings blackout filter.
type EarningsConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	CacheFile  string        `mapstructure:"cache_file"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	DaysBefore int           `mapstructure:"days_before"`
	DaysAfter  int           `mapstructure:"days_after"`
}

// ScanConfig defines the symbol universe and the proximity rule used to
// flag a zone touch.
type ScanConfig struct {
	Symbols      []string `mapstructure:"symbols"`
	ProximityPct float64  `mapstructure:"proximity_pct"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SWINGALERTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "swingalerts")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("cache.dir", "storage/cache")
	v.SetDefault("cache.daily_max_age", "24h")
	v.SetDefault("cache.hourly_max_age", "4h")
	v.SetDefault("cache.zone_max_age", "24h")
	v.SetDefault("cache.daily_retention", 200)
	v.SetDefault("cache.hourly_retention", 120)

	v.SetDefault("cooldown.window", "60m")
	v.SetDefault("cooldown.state_file", "storage/cache/alert_state.json")

	v.SetDefault("alphavantage.base_url", "https://www.alphavantage.co")
	v.SetDefault("alphavantage.output_size", "compact")
	v.SetDefault("alphavantage.request_timeout", "15s")
	v.SetDefault("alphavantage.user_agent", "swingalerts/1.0")

	v.SetDefault("zone_feed.request_timeout", "10s")

	v.SetDefault("earnings.enabled", true)
	v.SetDefault("earnings.cache_file", "storage/cache/earnings_cache.json")
	v.SetDefault("earnings.max_age", "720h")
	v.SetDefault("earnings.days_before", 3)
	v.SetDefault("earnings.days_after", 2)

	v.SetDefault("scan.proximity_pct", 0.5)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
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

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir must not be empty")
	}
	if c.Cache.DailyRetention <= 0 || c.Cache.HourlyRetention <= 0 {
		return fmt.Errorf("cache retention limits must be greater than zero")
	}
	if c.Cooldown.Window <= 0 {
		return fmt.Errorf("cooldown.window must be greater than zero")
	}
	if c.Scan.ProximityPct < 0 {
		return fmt.Errorf("scan.proximity_pct cannot be negative")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
